package services

import (
	"encoding/json"
	"fmt"
	"homematch-server/models"
	"homematch-server/storage"
	"homematch-server/utils"
	"sort"
	"time"
)

// FeedEntry is the unified read model every notification source synthesizes
// into. IDs are prefixed with the source kind so entries from different
// backing tables never collide in one feed.
type FeedEntry struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Message   string      `json:"message"`
	From      *Identity   `json:"from,omitempty"`
	ListingID *uint       `json:"listingID,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	Read      bool        `json:"read"`
}

// RatingCategory is one (category, value) pair inside a rating episode.
type RatingCategory struct {
	Category string `json:"category"`
	Value    int    `json:"value"`
	Comment  string `json:"comment,omitempty"`
}

// NotificationSource is the capability each backing record type implements so
// the aggregator can compose them uniformly instead of scattering per-type
// lookups across mutation endpoints.
type NotificationSource interface {
	Kind() string
	FetchFor(userID uint) ([]FeedEntry, error)
	MarkRead(id uint, userID uint) (bool, error)
	Delete(id uint, userID uint) (bool, error)
	UnreadCount(userID uint) (int64, error)
}

// Aggregator merges direct notifications and both rating streams into one
// chronologically ordered, read/unread-partitioned feed per user.
type Aggregator struct {
	sources []NotificationSource
}

func NewAggregator(resolver IdentityResolver) *Aggregator {
	return &Aggregator{
		sources: []NotificationSource{
			&DirectSource{Resolver: resolver},
			&TenantRatingSource{Resolver: resolver},
			&LandlordRatingSource{Resolver: resolver},
		},
	}
}

// Feed returns the user's notifications partitioned into seen and unseen,
// both ordered by effective timestamp descending.
func (a *Aggregator) Feed(userID uint) (seen []FeedEntry, unseen []FeedEntry, err error) {
	var all []FeedEntry
	for _, source := range a.sources {
		entries, err := source.FetchFor(userID)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, entries...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	seen = []FeedEntry{}
	unseen = []FeedEntry{}
	for _, entry := range all {
		if entry.Read {
			seen = append(seen, entry)
		} else {
			unseen = append(unseen, entry)
		}
	}
	return seen, unseen, nil
}

// MarkRead locates the record across all sources by id and ownership and
// flips its read flag. For a rating episode the whole group flips together.
func (a *Aggregator) MarkRead(id uint, userID uint) error {
	for _, source := range a.sources {
		found, err := source.MarkRead(id, userID)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
	}
	return utils.NotFoundError("no notification %d owned by user %d", id, userID)
}

// Delete removes the record from whichever source owns it, trying the source
// matching the given kind first.
func (a *Aggregator) Delete(kind string, id uint, userID uint) error {
	for _, source := range a.orderedByKind(kind) {
		found, err := source.Delete(id, userID)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
	}
	return utils.NotFoundError("no notification %d owned by user %d", id, userID)
}

// UnreadCount sums unseen items across all sources, counting each rating
// episode once so it agrees with Feed's partition.
func (a *Aggregator) UnreadCount(userID uint) (int64, error) {
	var total int64
	for _, source := range a.sources {
		count, err := source.UnreadCount(userID)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

func (a *Aggregator) orderedByKind(kind string) []NotificationSource {
	ordered := make([]NotificationSource, 0, len(a.sources))
	for _, source := range a.sources {
		if source.Kind() == kind {
			ordered = append(ordered, source)
		}
	}
	for _, source := range a.sources {
		if source.Kind() != kind {
			ordered = append(ordered, source)
		}
	}
	return ordered
}

// DirectSource serves rows of the notifications table.
type DirectSource struct {
	Resolver IdentityResolver
}

func (s *DirectSource) Kind() string { return "direct" }

func (s *DirectSource) FetchFor(userID uint) ([]FeedEntry, error) {
	var notifications []models.Notification
	if err := storage.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	entries := make([]FeedEntry, 0, len(notifications))
	for _, notification := range notifications {
		entry := FeedEntry{
			ID:        fmt.Sprintf("notification:%d", notification.ID),
			Kind:      notification.Kind,
			Message:   notification.Message,
			ListingID: notification.ListingID,
			CreatedAt: notification.CreatedAt,
			Read:      notification.IsRead,
		}
		if len(notification.Data) > 0 {
			entry.Data = json.RawMessage(notification.Data)
		}
		if notification.FromID != nil {
			entry.From = resolveOrPlaceholder(s.Resolver, *notification.FromID)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *DirectSource) MarkRead(id uint, userID uint) (bool, error) {
	res := storage.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (s *DirectSource) Delete(id uint, userID uint) (bool, error) {
	res := storage.DB.
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	return res.RowsAffected > 0, res.Error
}

func (s *DirectSource) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := storage.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// TenantRatingSource groups tenant-rating rows into per-minute episodes.
type TenantRatingSource struct {
	Resolver IdentityResolver
}

func (s *TenantRatingSource) Kind() string { return "tenant_rating" }

func (s *TenantRatingSource) FetchFor(userID uint) ([]FeedEntry, error) {
	var ratings []models.TenantRating
	if err := storage.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	return groupRatingEpisodes(s.Kind(), s.Resolver, tenantRows(ratings)), nil
}

func (s *TenantRatingSource) MarkRead(id uint, userID uint) (bool, error) {
	var rating models.TenantRating
	if err := storage.DB.Where("id = ? AND user_id = ?", id, userID).First(&rating).Error; err != nil {
		return false, nil
	}
	start, end := episodeWindow(rating.CreatedAt)
	res := storage.DB.Model(&models.TenantRating{}).
		Where("user_id = ? AND rated_by_id = ? AND created_at >= ? AND created_at < ?",
			userID, rating.RatedByID, start, end).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (s *TenantRatingSource) Delete(id uint, userID uint) (bool, error) {
	var rating models.TenantRating
	if err := storage.DB.Where("id = ? AND user_id = ?", id, userID).First(&rating).Error; err != nil {
		return false, nil
	}
	start, end := episodeWindow(rating.CreatedAt)
	res := storage.DB.
		Where("user_id = ? AND rated_by_id = ? AND created_at >= ? AND created_at < ?",
			userID, rating.RatedByID, start, end).
		Delete(&models.TenantRating{})
	return res.RowsAffected > 0, res.Error
}

func (s *TenantRatingSource) UnreadCount(userID uint) (int64, error) {
	var ratings []models.TenantRating
	if err := storage.DB.Select("rated_by_id, created_at").
		Where("user_id = ? AND is_read = ?", userID, false).
		Find(&ratings).Error; err != nil {
		return 0, err
	}
	return countEpisodes(tenantRows(ratings)), nil
}

// LandlordRatingSource mirrors TenantRatingSource over the landlord table.
type LandlordRatingSource struct {
	Resolver IdentityResolver
}

func (s *LandlordRatingSource) Kind() string { return "landlord_rating" }

func (s *LandlordRatingSource) FetchFor(userID uint) ([]FeedEntry, error) {
	var ratings []models.LandlordRating
	if err := storage.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	return groupRatingEpisodes(s.Kind(), s.Resolver, landlordRows(ratings)), nil
}

func (s *LandlordRatingSource) MarkRead(id uint, userID uint) (bool, error) {
	var rating models.LandlordRating
	if err := storage.DB.Where("id = ? AND user_id = ?", id, userID).First(&rating).Error; err != nil {
		return false, nil
	}
	start, end := episodeWindow(rating.CreatedAt)
	res := storage.DB.Model(&models.LandlordRating{}).
		Where("user_id = ? AND rated_by_id = ? AND created_at >= ? AND created_at < ?",
			userID, rating.RatedByID, start, end).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (s *LandlordRatingSource) Delete(id uint, userID uint) (bool, error) {
	var rating models.LandlordRating
	if err := storage.DB.Where("id = ? AND user_id = ?", id, userID).First(&rating).Error; err != nil {
		return false, nil
	}
	start, end := episodeWindow(rating.CreatedAt)
	res := storage.DB.
		Where("user_id = ? AND rated_by_id = ? AND created_at >= ? AND created_at < ?",
			userID, rating.RatedByID, start, end).
		Delete(&models.LandlordRating{})
	return res.RowsAffected > 0, res.Error
}

func (s *LandlordRatingSource) UnreadCount(userID uint) (int64, error) {
	var ratings []models.LandlordRating
	if err := storage.DB.Select("rated_by_id, created_at").
		Where("user_id = ? AND is_read = ?", userID, false).
		Find(&ratings).Error; err != nil {
		return 0, err
	}
	return countEpisodes(landlordRows(ratings)), nil
}

// ratingRow is the shared shape both rating tables reduce to for grouping.
type ratingRow struct {
	ID        uint
	RatedByID uint
	Category  string
	Value     int
	Comment   string
	IsRead    bool
	CreatedAt time.Time
}

func tenantRows(ratings []models.TenantRating) []ratingRow {
	rows := make([]ratingRow, len(ratings))
	for i, r := range ratings {
		rows[i] = ratingRow{r.ID, r.RatedByID, r.Category, r.Value, r.Comment, r.IsRead, r.CreatedAt}
	}
	return rows
}

func landlordRows(ratings []models.LandlordRating) []ratingRow {
	rows := make([]ratingRow, len(ratings))
	for i, r := range ratings {
		rows[i] = ratingRow{r.ID, r.RatedByID, r.Category, r.Value, r.Comment, r.IsRead, r.CreatedAt}
	}
	return rows
}

// episodeWindow returns the minute bucket containing t.
func episodeWindow(t time.Time) (time.Time, time.Time) {
	start := t.Truncate(time.Minute)
	return start, start.Add(time.Minute)
}

func episodeKey(row ratingRow) string {
	start, _ := episodeWindow(row.CreatedAt)
	return fmt.Sprintf("%d:%d", row.RatedByID, start.Unix())
}

// groupRatingEpisodes folds same-minute, same-rater rows into single feed
// entries. Rows arrive newest first, so each episode keeps its newest row's
// id and timestamp.
func groupRatingEpisodes(sourceKind string, resolver IdentityResolver, rows []ratingRow) []FeedEntry {
	entries := []FeedEntry{}
	index := map[string]int{}
	for _, row := range rows {
		key := episodeKey(row)
		if at, ok := index[key]; ok {
			data := entries[at].Data.(map[string]interface{})
			data["categories"] = append(data["categories"].([]RatingCategory), RatingCategory{
				Category: row.Category,
				Value:    row.Value,
				Comment:  row.Comment,
			})
			continue
		}

		from := resolveOrPlaceholder(resolver, row.RatedByID)
		entries = append(entries, FeedEntry{
			ID:      fmt.Sprintf("%s:%d", sourceKind, row.ID),
			Kind:    models.NotificationRating,
			Message: fmt.Sprintf("%s rated you", from.DisplayName),
			From:    from,
			Data: map[string]interface{}{
				"source": sourceKind,
				"categories": []RatingCategory{{
					Category: row.Category,
					Value:    row.Value,
					Comment:  row.Comment,
				}},
			},
			CreatedAt: row.CreatedAt,
			Read:      row.IsRead,
		})
		index[key] = len(entries) - 1
	}
	return entries
}

func countEpisodes(rows []ratingRow) int64 {
	keys := map[string]bool{}
	for _, row := range rows {
		keys[episodeKey(row)] = true
	}
	return int64(len(keys))
}

// resolveOrPlaceholder never fails the feed over a missing rater identity.
func resolveOrPlaceholder(resolver IdentityResolver, userID uint) *Identity {
	if resolver != nil {
		if identity, err := resolver.ResolveIdentity(userID); err == nil {
			return &identity
		}
	}
	return &Identity{ID: userID, DisplayName: "Unknown User"}
}
