package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 50 << 20 // 50MB per file

// UploadFile is a single file submitted in a bulk upload
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileResult records the outcome for one file of a bulk upload
type FileResult struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Status string `json:"status"` // uploaded | failed | skipped
	Reason string `json:"reason,omitempty"`
}

// UploadSummary aggregates a bulk upload
type UploadSummary struct {
	Uploaded int          `json:"uploaded"`
	Failed   int          `json:"failed"`
	Skipped  int          `json:"skipped"`
	Files    []FileResult `json:"files"`
}

// UploadService handles organizer-side bulk image uploads
type UploadService struct {
	objects       ObjectGateway
	events        *EventService
	hub           *ProgressHub
	downloadDelay time.Duration
}

// NewUploadService creates a new upload service
func NewUploadService(objects ObjectGateway, events *EventService, hub *ProgressHub, downloadDelay time.Duration) *UploadService {
	return &UploadService{
		objects:       objects,
		events:        events,
		hub:           hub,
		downloadDelay: downloadDelay,
	}
}

// ValidateFile checks a single file before any network call. It returns
// a human-readable reason when the file must be excluded from the batch.
func ValidateFile(f UploadFile) (reason string, ok bool) {
	if !strings.HasPrefix(f.ContentType, "image/") {
		return "not an image", false
	}
	if len(f.Data) > maxUploadBytes {
		return "file exceeds 50MB", false
	}
	if strings.HasPrefix(strings.ToLower(filepath.Base(f.Name)), "selfie") {
		return "selfies are not event photos", false
	}
	return "", true
}

// UploadEventImages validates and uploads a batch of event images. Valid
// files upload concurrently; each file succeeds or fails independently
// and the aggregate counts are reported back. The event's photo counter
// is bumped by the number of successful uploads.
func (s *UploadService) UploadEventImages(ctx context.Context, userID, eventID string, files []UploadFile) (*UploadSummary, error) {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}

	summary := &UploadSummary{Files: make([]FileResult, len(files))}

	// Validation happens entirely before the first network call; invalid
	// files are excluded while the rest of the batch proceeds
	valid := make([]int, 0, len(files))
	for i, f := range files {
		if reason, ok := ValidateFile(f); !ok {
			summary.Files[i] = FileResult{Name: f.Name, Status: "skipped", Reason: reason}
			summary.Skipped++
			continue
		}
		valid = append(valid, i)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, i := range valid {
		f := files[i]
		wg.Add(1)
		go func(i int, f UploadFile) {
			defer wg.Done()

			key := EventImageKey(eventID, uniqueFilename(f.Name))
			url, err := s.objects.Put(ctx, key, f.Data, f.ContentType)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Error().Err(err).Str("filename", f.Name).Str("event_id", eventID).Msg("Upload failed")
				summary.Files[i] = FileResult{Name: f.Name, Status: "failed", Reason: err.Error()}
				summary.Failed++
			} else {
				summary.Files[i] = FileResult{Name: f.Name, URL: url, Status: "uploaded"}
				summary.Uploaded++
			}
			s.hub.SendToUser(userID, ProgressMessage{
				Type:      MsgUploadProgress,
				EventID:   eventID,
				Filename:  f.Name,
				Completed: summary.Uploaded + summary.Failed + summary.Skipped,
				Total:     len(files),
			})
		}(i, f)
	}
	wg.Wait()

	if summary.Uploaded > 0 {
		if err := s.events.AddPhotoCount(ctx, eventID, summary.Uploaded); err != nil {
			log.Warn().Err(err).Str("event_id", eventID).Msg("Failed to bump photo count")
		}
	}

	return summary, nil
}

// UploadCover stores an event's cover image and updates the event record
func (s *UploadService) UploadCover(ctx context.Context, eventID string, f UploadFile) (string, error) {
	if reason, ok := ValidateFile(f); !ok {
		return "", fmt.Errorf("invalid cover image: %s", reason)
	}

	url, err := s.objects.Put(ctx, EventCoverKey(eventID), f.Data, f.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload cover: %w", err)
	}

	if err := s.events.SetCover(ctx, eventID, url); err != nil {
		return "", err
	}
	return url, nil
}

// ListEventImages returns the public URLs of an event's gallery images.
// When a download delay is configured the listing is paced, matching the
// serialized bulk-download behavior of the original client.
func (s *UploadService) ListEventImages(ctx context.Context, eventID string) ([]string, error) {
	keys, err := s.objects.List(ctx, EventImagePrefix(eventID))
	if err != nil {
		return nil, fmt.Errorf("failed to list event images: %w", err)
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		if s.downloadDelay > 0 {
			time.Sleep(s.downloadDelay)
		}
		urls = append(urls, s.objects.PublicURL(key))
	}
	return urls, nil
}
