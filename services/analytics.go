package services

import (
	"context"
	"log/slog"
	"time"

	"urbanconnect-be/models"
)

const (
	analyticsDays = 7
	topVotedLimit = 5
)

// Dashboard is the admin overview of reporting activity.
type Dashboard struct {
	TotalIssues      int64                `json:"total_issues"`
	OpenIssues       int64                `json:"open_issues"`
	IssuesByStatus   []models.CountBucket `json:"issues_by_status"`
	IssuesByCategory []models.CountBucket `json:"issues_by_category"`
	Last7Days        []models.DailyCount  `json:"last_7_days"`
	TopVotedIssues   []models.VoteTally   `json:"top_voted_issues"`
}

type AnalyticsService struct {
	stats StatsSource
	votes VoteRanking
	log   *slog.Logger
	now   func() time.Time
}

func NewAnalyticsService(stats StatsSource, votes VoteRanking, log *slog.Logger) *AnalyticsService {
	if log == nil {
		log = slog.Default()
	}
	return &AnalyticsService{stats: stats, votes: votes, log: log, now: time.Now}
}

// Dashboard aggregates issue counts and the most supported issues. Days
// without reports appear in the series with a zero count.
func (s *AnalyticsService) Dashboard(ctx context.Context, actor *Actor) (*Dashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(analyticsDays - 1))

	stats, err := s.stats.Stats(ctx, since)
	if err != nil {
		return nil, persistence(err)
	}

	d := &Dashboard{
		TotalIssues:      stats.Total,
		IssuesByStatus:   nonNil(stats.ByStatus),
		IssuesByCategory: nonNil(stats.ByCategory),
		Last7Days:        fillDays(since, analyticsDays, stats.Daily),
		TopVotedIssues:   []models.VoteTally{},
	}
	for _, b := range stats.ByStatus {
		if st := models.IssueStatus(b.Name); st.Valid() && !st.Terminal() {
			d.OpenIssues += b.Count
		}
	}

	if s.votes != nil {
		top, err := s.votes.TopVoted(ctx, topVotedLimit)
		if err != nil {
			return nil, persistence(err)
		}
		d.TopVotedIssues = top
	}
	return d, nil
}

func fillDays(start time.Time, days int, counts []models.DailyCount) []models.DailyCount {
	byDate := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDate[c.Date] = c.Count
	}
	series := make([]models.DailyCount, days)
	for i := range series {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		series[i] = models.DailyCount{Date: date, Count: byDate[date]}
	}
	return series
}

func nonNil(b []models.CountBucket) []models.CountBucket {
	if b == nil {
		return []models.CountBucket{}
	}
	return b
}
