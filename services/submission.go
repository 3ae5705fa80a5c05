package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"urbanconnect-be/events"
	"urbanconnect-be/models"
	"urbanconnect-be/repository"
	"urbanconnect-be/storage"

	"golang.org/x/sync/errgroup"
)

// Variant selects how strictly submissions are screened.
type Variant string

const (
	// VariantPothole accepts pothole reports only: keyword screening,
	// category forced to pothole and every submission classified.
	VariantPothole Variant = "pothole"
	// VariantGeneral accepts any category, screens for profanity and
	// classifies only reports filed as potholes.
	VariantGeneral Variant = "general"
)

func ParseVariant(s string) Variant {
	if Variant(strings.ToLower(strings.TrimSpace(s))) == VariantGeneral {
		return VariantGeneral
	}
	return VariantPothole
}

const (
	MinTitleLength       = 5
	MinDescriptionLength = 20
	MaxImages            = 5
	MaxImageBytes        = 10 << 20
)

// SubmitRequest is the citizen's raw report.
type SubmitRequest struct {
	Title       string
	Description string
	Location    string
	Category    string
	Priority    string
	Images      []Image
}

type SubmissionPipeline struct {
	variant    Variant
	filter     ContentFilter
	sanitizer  *Sanitizer
	geo        *GeoValidator
	classifier ImageClassifier
	media      MediaStore
	issues     IssueStore
	events     Publisher
	log        *slog.Logger
	// cleanupTimeout bounds deletion of partial uploads once the request
	// context may already be gone.
	cleanupTimeout time.Duration
}

type PipelineDeps struct {
	Variant    Variant
	Geo        *GeoValidator
	Classifier ImageClassifier
	Media      MediaStore
	Issues     IssueStore
	Events     Publisher
	Log        *slog.Logger
}

func NewSubmissionPipeline(d PipelineDeps) *SubmissionPipeline {
	var filter ContentFilter = NewPotholeKeywordFilter()
	if d.Variant == VariantGeneral {
		filter = NewProfanityFilter()
	} else {
		d.Variant = VariantPothole
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &SubmissionPipeline{
		variant:        d.Variant,
		filter:         filter,
		sanitizer:      NewSanitizer(),
		geo:            d.Geo,
		classifier:     d.Classifier,
		media:          d.Media,
		issues:         d.Issues,
		events:         d.Events,
		log:            d.Log,
		cleanupTimeout: 10 * time.Second,
	}
}

func (p *SubmissionPipeline) Variant() Variant { return p.variant }

// Submit runs a report through every gate in order and persists it as a
// pending issue. Nothing is uploaded before the content, location and
// image checks pass, and nothing uploaded survives a later failure.
func (p *SubmissionPipeline) Submit(ctx context.Context, actor *Actor, req SubmitRequest) (*models.Issue, error) {
	if len(req.Images) == 0 {
		return nil, ErrNoImage
	}
	if err := checkImages(req.Images); err != nil {
		return nil, err
	}

	title := p.sanitizer.Clean(req.Title)
	description := p.sanitizer.Clean(req.Description)
	category, priority, err := p.checkFields(title, description, req.Category, req.Priority)
	if err != nil {
		return nil, err
	}

	if err := p.filter.Screen(title, description); err != nil {
		return nil, err
	}

	loc, err := p.geo.Resolve(ctx, req.Location)
	if err != nil {
		return nil, err
	}

	if p.classifies(category) {
		// Only the first photo is analysed.
		first := req.Images[0]
		verdict, err := p.classifier.Classify(ctx, first.Data, first.ContentType)
		if err != nil {
			return nil, withCause(ErrClassifierUnavailable, err)
		}
		if !verdict.PotholeDetected {
			return nil, ErrNoPotholeDetected
		}
	}

	urls, err := p.upload(ctx, storage.Before, req.Images)
	if err != nil {
		return nil, withCause(ErrUploadFailed, err)
	}

	if !actor.authenticated() {
		p.discard(ctx, urls)
		return nil, ErrAuthRequired
	}

	issue := &models.Issue{
		Title:        title,
		Description:  description,
		Category:     category,
		Priority:     priority,
		Location:     loc.Display,
		BeforeImages: urls,
		UserID:       actor.UserID,
	}
	if err := p.issues.Create(ctx, issue); err != nil {
		p.discard(ctx, urls)
		if errors.Is(err, repository.ErrNoImages) {
			return nil, ErrNoImage
		}
		return nil, persistence(err)
	}

	p.log.Info("issue submitted",
		"issue_id", issue.ID.Hex(),
		"user_id", actor.UserID.Hex(),
		"category", issue.Category,
		"images", len(urls),
	)
	publish(ctx, p.events, p.log, events.IssueCreated, issue)
	return issue, nil
}

func checkImages(images []Image) error {
	if len(images) > MaxImages {
		return withMessage(ErrInvalidInput, fmt.Sprintf("At most %d images can be attached", MaxImages))
	}
	for _, img := range images {
		if len(img.Data) == 0 {
			return ErrNoImage
		}
		if len(img.Data) > MaxImageBytes {
			return withMessage(ErrInvalidInput, "Image is too large")
		}
		if !strings.HasPrefix(img.ContentType, "image/") {
			return withMessage(ErrInvalidInput, "Only image files can be attached")
		}
	}
	return nil
}

func (p *SubmissionPipeline) checkFields(title, description, rawCategory, rawPriority string) (models.IssueCategory, models.IssuePriority, error) {
	if len([]rune(title)) < MinTitleLength {
		return "", "", withMessage(ErrInvalidInput, fmt.Sprintf("Title must be at least %d characters", MinTitleLength))
	}
	if len([]rune(description)) < MinDescriptionLength {
		return "", "", withMessage(ErrInvalidInput, fmt.Sprintf("Description must be at least %d characters", MinDescriptionLength))
	}

	priority, ok := models.ParsePriority(strings.ToLower(strings.TrimSpace(rawPriority)))
	if !ok {
		return "", "", withMessage(ErrInvalidInput, "Priority must be low, medium or high")
	}

	// The pothole variant ignores whatever category the client sent.
	if p.variant == VariantPothole {
		return models.Pothole, priority, nil
	}
	category := models.IssueCategory(strings.ToLower(strings.TrimSpace(rawCategory)))
	if category == "" {
		category = models.Other
	}
	if !category.Valid() {
		return "", "", withMessage(ErrInvalidInput, "Unknown category")
	}
	return category, priority, nil
}

func (p *SubmissionPipeline) classifies(category models.IssueCategory) bool {
	return p.variant == VariantPothole || category == models.Pothole
}

// upload stores every image concurrently. On any failure the objects that
// did land are deleted before returning.
func (p *SubmissionPipeline) upload(ctx context.Context, ns storage.Namespace, images []Image) ([]string, error) {
	urls := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			url, err := p.media.Store(gctx, ns, img.Data, img.ContentType)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.discard(ctx, urls)
		return nil, err
	}
	return urls, nil
}

// discard deletes uploaded objects. It runs detached from ctx so that a
// cancelled request still cleans up after itself.
func (p *SubmissionPipeline) discard(ctx context.Context, urls []string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cleanupTimeout)
	defer cancel()
	discardMedia(ctx, p.media, p.log, urls)
}

func discardMedia(ctx context.Context, media MediaStore, log *slog.Logger, urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := media.Delete(ctx, url); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Error("orphaned upload", "url", url, "error", err)
		}
	}
}

// publish announces a committed change. The mutation already happened, so
// a failed publish is logged and otherwise ignored.
func publish(ctx context.Context, pub Publisher, log *slog.Logger, typ events.Type, issue *models.Issue) {
	if pub == nil {
		return
	}
	ev := events.Event{
		Type:    typ,
		IssueID: issue.ID.Hex(),
		UserID:  issue.UserID.Hex(),
		Status:  string(issue.Status),
		Stage:   string(issue.Stage),
		At:      time.Now().UTC(),
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn("publish event", "type", typ, "issue_id", ev.IssueID, "error", err)
	}
}
