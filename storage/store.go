package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadGrant is a time-bounded write permission for a single blob.
// Key is the opaque id the client hands back once the upload is done.
type UploadGrant struct {
	URL       string    `json:"url"`
	Key       string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BlobStore interface {
	PresignUpload(ctx context.Context, prefix, ext, contentType string) (*UploadGrant, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	GetPublicURL(key string) string
}

// NewBlobName returns "<prefix>/<uuid><ext>".
func NewBlobName(prefix, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(strings.Trim(prefix, "/"), uuid.NewString()+ext)
}

// HasPrefix reports whether key lives directly or indirectly under prefix.
func HasPrefix(key, prefix string) bool {
	prefix = strings.Trim(prefix, "/") + "/"
	clean := path.Clean(key)
	return clean == key && strings.HasPrefix(clean, prefix) && len(clean) > len(prefix)
}

func CompetitionUploadPrefix(userID int) string {
	return fmt.Sprintf("competition/upload/%d", userID)
}

func SubmissionPrefix(competitionID, userID int) string {
	return fmt.Sprintf("competition/%d/submission/%d", competitionID, userID)
}
