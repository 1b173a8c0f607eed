package wordpress

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cpconnect/chms-sync/internal/domain"
	"github.com/cpconnect/chms-sync/internal/pkg/logger"
)

// Thumbnails prepares a remote image for sideloading: fetched, resized,
// and cached, returning the bytes to hand to the media library.
type Thumbnails interface {
	Prepare(ctx context.Context, sourceURL string) (filename, contentType string, data []byte, err error)
}

// Reserved field names that map onto fixed post columns instead of meta.
const (
	FieldTitle   = "post_title"
	FieldContent = "post_content"
	FieldExcerpt = "post_excerpt"
)

var defaultRestBases = map[domain.ContentType]string{
	domain.ContentTypeEvents:    "events",
	domain.ContentTypeGroups:    "groups",
	domain.ContentTypeLocations: "locations",
}

// Sink applies canonical items to WordPress. Idempotency comes from
// the ledger: a ChMS ID that already owns a post gets an update, not a
// duplicate.
type Sink struct {
	client    *Client
	ledger    Ledger
	thumbs    Thumbnails
	restBases map[domain.ContentType]string
}

// NewSink creates a WordPress sink. thumbs may be nil, in which case
// thumbnail URLs are ignored.
func NewSink(client *Client, ledger Ledger, thumbs Thumbnails) *Sink {
	return &Sink{
		client:    client,
		ledger:    ledger,
		thumbs:    thumbs,
		restBases: defaultRestBases,
	}
}

// SetRestBase overrides the REST route for a content type, for sites
// whose post types register a custom rest_base.
func (s *Sink) SetRestBase(ct domain.ContentType, restBase string) {
	bases := make(map[domain.ContentType]string, len(s.restBases)+1)
	for k, v := range s.restBases {
		bases[k] = v
	}
	bases[ct] = restBase
	s.restBases = bases
}

// Upsert creates or updates the post owned by the item's ChMS ID and
// returns the post ID as a string.
func (s *Sink) Upsert(ctx context.Context, ct domain.ContentType, item *domain.CanonicalItem) (string, error) {
	restBase, ok := s.restBases[ct]
	if !ok {
		return "", fmt.Errorf("no rest base for content type %s", ct)
	}

	entry, err := s.ledger.Get(ctx, ct, item.ChmsID)
	if err != nil {
		return "", fmt.Errorf("ledger lookup: %w", err)
	}

	payload := buildPayload(item)

	for taxonomy, names := range item.TaxonomyTerms {
		ids := make([]int, 0, len(names))
		for _, name := range names {
			id, err := s.client.EnsureTerm(ctx, taxonomy, name)
			if err != nil {
				return "", err
			}
			ids = append(ids, id)
		}
		if payload.Terms == nil {
			payload.Terms = map[string][]int{}
		}
		payload.Terms[taxonomy] = ids
	}

	mediaID, thumbURL, err := s.syncThumbnail(ctx, item, entry)
	if err != nil {
		// A broken image should not block the content itself.
		logger.Warn("thumbnail skipped", "content_type", ct, "chms_id", item.ChmsID, "error", err.Error())
	}
	payload.FeaturedMedia = mediaID

	var postID int
	if entry == nil {
		postID, err = s.client.CreatePost(ctx, restBase, payload)
	} else {
		postID = entry.PostID
		err = s.client.UpdatePost(ctx, restBase, postID, payload)
	}
	if err != nil {
		return "", err
	}

	saved := LedgerEntry{
		ContentType:  ct,
		ChmsID:       item.ChmsID,
		PostID:       postID,
		MediaID:      mediaID,
		ThumbnailURL: thumbURL,
	}
	if err := s.ledger.Save(ctx, saved); err != nil {
		return "", fmt.Errorf("ledger save: %w", err)
	}
	return strconv.Itoa(postID), nil
}

// Remove deletes the post owned by a ChMS ID along with its media
// attachment. A missing ledger entry means there is nothing to do.
func (s *Sink) Remove(ctx context.Context, ct domain.ContentType, chmsID string) error {
	restBase, ok := s.restBases[ct]
	if !ok {
		return fmt.Errorf("no rest base for content type %s", ct)
	}

	entry, err := s.ledger.Get(ctx, ct, chmsID)
	if err != nil {
		return fmt.Errorf("ledger lookup: %w", err)
	}
	if entry == nil {
		return nil
	}

	if err := s.client.DeletePost(ctx, restBase, entry.PostID); err != nil {
		return err
	}
	if entry.MediaID > 0 {
		if err := s.client.DeleteMedia(ctx, entry.MediaID); err != nil {
			logger.Warn("orphaned media attachment", "content_type", ct, "chms_id", chmsID, "media_id", entry.MediaID, "error", err.Error())
		}
	}
	return s.ledger.Delete(ctx, ct, chmsID)
}

// syncThumbnail sideloads the item's thumbnail when it changed since
// the last sync, reusing the existing attachment otherwise. Returns
// the attachment ID and source URL to record in the ledger.
func (s *Sink) syncThumbnail(ctx context.Context, item *domain.CanonicalItem, entry *LedgerEntry) (int, string, error) {
	if item.ThumbnailURL == "" || s.thumbs == nil {
		return 0, "", nil
	}
	if entry != nil && entry.ThumbnailURL == item.ThumbnailURL && entry.MediaID > 0 {
		return entry.MediaID, entry.ThumbnailURL, nil
	}

	filename, contentType, data, err := s.thumbs.Prepare(ctx, item.ThumbnailURL)
	if err != nil {
		return 0, "", err
	}
	mediaID, err := s.client.UploadMedia(ctx, filename, contentType, data)
	if err != nil {
		return 0, "", err
	}

	if entry != nil && entry.MediaID > 0 {
		if err := s.client.DeleteMedia(ctx, entry.MediaID); err != nil {
			logger.Warn("stale media attachment not deleted", "media_id", entry.MediaID, "error", err.Error())
		}
	}
	return mediaID, item.ThumbnailURL, nil
}

func buildPayload(item *domain.CanonicalItem) PostPayload {
	payload := PostPayload{Status: "publish"}
	meta := map[string]interface{}{}
	for name, value := range item.Fields {
		switch name {
		case FieldTitle:
			payload.Title = domain.Stringify(value)
		case FieldContent:
			payload.Content = domain.Stringify(value)
		case FieldExcerpt:
			payload.Excerpt = domain.Stringify(value)
		default:
			meta[name] = value
		}
	}
	if len(meta) > 0 {
		payload.Meta = meta
	}
	return payload
}
