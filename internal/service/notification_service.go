package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/observability"
)

const viewedKeyPrefix = "viewedNotifications_"

// NotificationFeed is the role-filtered notification list of a client
type NotificationFeed struct {
	Notifications []domain.Notification `json:"notifications"`
	Unviewed      int                   `json:"unviewed"`
}

// NotificationService filters backend notifications for a session and
// tracks which ones the client has seen.
type NotificationService struct {
	now func() time.Time
}

func NewNotificationService() *NotificationService {
	return &NotificationService{now: time.Now}
}

// ViewedKey is the storage key of the viewed notification ids of userID
func ViewedKey(userID int64) string {
	return viewedKeyPrefix + strconv.FormatInt(userID, 10)
}

// Feed returns the notifications of the last month addressed to the session
// role. Viewed ids that no longer appear are forgotten.
func (s *NotificationService) Feed(ctx context.Context, c *Client) (*NotificationFeed, error) {
	feed, viewed, err := s.load(ctx, c)
	if err != nil {
		return nil, err
	}
	feed.Unviewed = countUnviewed(feed.Notifications, viewed)
	return feed, nil
}

// MarkViewed records ids as viewed. An empty ids marks the whole feed.
func (s *NotificationService) MarkViewed(ctx context.Context, c *Client, ids []int64) (*NotificationFeed, error) {
	feed, viewed, err := s.load(ctx, c)
	if err != nil {
		return nil, err
	}

	for _, n := range feed.Notifications {
		if len(ids) > 0 && !slices.Contains(ids, n.ID) {
			continue
		}
		if !slices.Contains(viewed, n.ID) {
			viewed = append(viewed, n.ID)
		}
	}
	if err := s.saveViewed(ctx, c, viewed); err != nil {
		return nil, err
	}

	feed.Unviewed = countUnviewed(feed.Notifications, viewed)
	return feed, nil
}

func (s *NotificationService) load(ctx context.Context, c *Client) (*NotificationFeed, []int64, error) {
	st := c.Session().State()
	if !st.Authenticated() {
		return nil, nil, domain.ErrNotAuthenticated
	}

	all, err := c.Backend.Notifications(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch notifications: %w", err)
	}

	cutoff := s.now().AddDate(0, -1, 0)
	visible := make([]domain.Notification, 0, len(all))
	for _, n := range all {
		if n.Role == st.Role && n.Timestamp.After(cutoff) {
			visible = append(visible, n)
		}
	}

	stored, err := s.loadViewed(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	viewed := make([]int64, 0, len(stored))
	for _, id := range stored {
		if slices.ContainsFunc(visible, func(n domain.Notification) bool { return n.ID == id }) {
			viewed = append(viewed, id)
		}
	}
	if len(viewed) != len(stored) {
		if err := s.saveViewed(ctx, c, viewed); err != nil {
			observability.FromContext(ctx).Warn("failed to prune viewed notifications", "error", err)
		}
	}

	return &NotificationFeed{Notifications: visible}, viewed, nil
}

// loadViewed reads the viewed ids kept under the session userId. A session
// without one keeps them on the client for its lifetime.
func (s *NotificationService) loadViewed(ctx context.Context, c *Client) ([]int64, error) {
	userID := c.Session().State().UserID
	if userID == nil {
		return c.unkeyedViewed(), nil
	}

	raw, err := c.Storage.Get(ctx, ViewedKey(*userID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read viewed notifications: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		observability.FromContext(ctx).Warn("discarding malformed viewed notifications", "error", err)
		return nil, nil
	}
	return ids, nil
}

func (s *NotificationService) saveViewed(ctx context.Context, c *Client, ids []int64) error {
	userID := c.Session().State().UserID
	if userID == nil {
		c.setUnkeyedViewed(ids)
		return nil
	}
	if ids == nil {
		ids = []int64{}
	}

	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := c.Storage.Set(ctx, ViewedKey(*userID), string(raw)); err != nil {
		return fmt.Errorf("write viewed notifications: %w", err)
	}
	return nil
}

func countUnviewed(notifications []domain.Notification, viewed []int64) int {
	n := 0
	for _, item := range notifications {
		if !slices.Contains(viewed, item.ID) {
			n++
		}
	}
	return n
}
