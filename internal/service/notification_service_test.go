package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"naspac-portal/internal/domain"
	"naspac-portal/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptNotifications(stub *testutil.BackendStub, items ...domain.Notification) {
	stub.JSON("GET /documents/notifications", http.StatusOK, items)
}

func ids(items []domain.Notification) []int64 {
	out := make([]int64, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func TestFeed_FiltersByRoleAndAge(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	scriptIdentity(stub, domain.RolePersonnel, 42)
	scriptNotifications(stub,
		testutil.NewTestNotification(testutil.WithNotificationID(1)),
		testutil.NewTestNotification(testutil.WithNotificationID(2), testutil.WithNotificationRole(domain.RoleAdmin)),
		testutil.NewTestNotification(testutil.WithNotificationID(3), testutil.WithNotificationAge(45*24*time.Hour)),
		testutil.NewTestNotification(testutil.WithNotificationID(4), testutil.WithNotificationAge(20*24*time.Hour)),
	)
	c := newTestClient(t, stub, "tok")

	feed, err := NewNotificationService().Feed(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids(feed.Notifications))
	assert.Equal(t, 2, feed.Unviewed)
}

func TestFeed_RequiresSession(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	c := newTestClient(t, stub, "")

	_, err := NewNotificationService().Feed(context.Background(), c)
	testutil.AssertErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Zero(t, stub.TotalCalls())
}

func TestFeed_PrunesViewedIDs(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	scriptIdentity(stub, domain.RolePersonnel, 42)
	scriptNotifications(stub,
		testutil.NewTestNotification(testutil.WithNotificationID(1)),
		testutil.NewTestNotification(testutil.WithNotificationID(2)),
	)
	c := newTestClient(t, stub, "tok")
	ctx := context.Background()
	require.NoError(t, c.Storage.Set(ctx, ViewedKey(42), "[1,99]"))

	feed, err := NewNotificationService().Feed(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Unviewed)

	raw, err := c.Storage.Get(ctx, ViewedKey(42))
	require.NoError(t, err)
	assert.JSONEq(t, "[1]", raw)
}

func TestFeed_MalformedViewedIgnored(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	scriptIdentity(stub, domain.RolePersonnel, 42)
	scriptNotifications(stub, testutil.NewTestNotification(testutil.WithNotificationID(1)))
	c := newTestClient(t, stub, "tok")
	require.NoError(t, c.Storage.Set(context.Background(), ViewedKey(42), "not json"))

	feed, err := NewNotificationService().Feed(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Unviewed)
}

func TestMarkViewed(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	scriptIdentity(stub, domain.RolePersonnel, 42)
	scriptNotifications(stub,
		testutil.NewTestNotification(testutil.WithNotificationID(1)),
		testutil.NewTestNotification(testutil.WithNotificationID(2)),
		testutil.NewTestNotification(testutil.WithNotificationID(3)),
	)
	c := newTestClient(t, stub, "tok")
	svc := NewNotificationService()
	ctx := context.Background()

	feed, err := svc.MarkViewed(ctx, c, []int64{2, 77})
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Unviewed)

	raw, err := c.Storage.Get(ctx, ViewedKey(42))
	require.NoError(t, err)
	var stored []int64
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, []int64{2}, stored)

	feed, err = svc.MarkViewed(ctx, c, nil)
	require.NoError(t, err)
	assert.Zero(t, feed.Unviewed)
}

func TestMarkViewed_SessionWithoutUserID(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	scriptNotifications(stub,
		testutil.NewTestNotification(testutil.WithNotificationID(1)),
		testutil.NewTestNotification(testutil.WithNotificationID(2)),
	)
	c := newTestClient(t, stub, "")
	ctx := context.Background()
	// a login whose enrichment failed leaves the role without a userId
	require.NoError(t, c.Credentials.Set(ctx, "tok"))
	require.NoError(t, c.Session().SetRole(domain.RolePersonnel))
	svc := NewNotificationService()

	feed, err := svc.MarkViewed(ctx, c, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Unviewed)

	feed, err = svc.Feed(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Unviewed, "viewed ids are kept on the client")

	feed, err = svc.MarkViewed(ctx, c, nil)
	require.NoError(t, err)
	assert.Zero(t, feed.Unviewed)
}

func TestFeed_BackendFailure(t *testing.T) {
	stub := testutil.NewBackendStub(t)
	scriptIdentity(stub, domain.RolePersonnel, 42)
	stub.JSON("GET /documents/notifications", http.StatusInternalServerError, map[string]any{})
	c := newTestClient(t, stub, "tok")

	_, err := NewNotificationService().Feed(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch notifications")
}
