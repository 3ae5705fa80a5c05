package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS stores objects in a MongoDB GridFS bucket, using the object key as
// the GridFS file name.
type GridFS struct {
	db      *mongo.Database
	bucket  string
	baseURL string
}

func NewGridFS(db *mongo.Database, bucket, baseURL string) *GridFS {
	return &GridFS{db: db, bucket: bucket, baseURL: baseURL}
}

// open returns a bucket bound to ctx's deadline. Buckets carry their
// deadlines as mutable state, so every call gets its own.
func (s *GridFS) open(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.bucket))
	if err != nil {
		return nil, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	if err := b.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := b.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *GridFS) Store(ctx context.Context, ns Namespace, data []byte, contentType string) (string, error) {
	b, err := s.open(ctx)
	if err != nil {
		return "", err
	}
	key := NewKey(ns, contentType, time.Now())
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	if _, err := b.UploadFromStream(key, bytes.NewReader(data), opts); err != nil {
		return "", fmt.Errorf("gridfs upload %s: %w", key, err)
	}
	return PublicURL(s.baseURL, key), nil
}

func (s *GridFS) Delete(ctx context.Context, url string) error {
	key, err := KeyFromURL(s.baseURL, url)
	if err != nil {
		return err
	}
	b, err := s.open(ctx)
	if err != nil {
		return err
	}
	cursor, err := b.Find(bson.M{"filename": key})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var files []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &files); err != nil {
		return err
	}
	if len(files) == 0 {
		return ErrNotFound
	}
	for _, f := range files {
		if err := b.Delete(f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return err
		}
	}
	return nil
}

func (s *GridFS) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if err := ValidateKey(key); err != nil {
		return nil, "", err
	}
	b, err := s.open(ctx)
	if err != nil {
		return nil, "", err
	}
	stream, err := b.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	contentType := "application/octet-stream"
	if f := stream.GetFile(); f != nil && f.Metadata != nil {
		if ct, ok := f.Metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
			contentType = ct
		}
	}
	return stream, contentType, nil
}
