package dynamodb

import (
	"context"
	"testing"
	"time"

	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"helpdesk-console/internal/domain"
)

type fakeTable struct {
	items map[string]map[string]awsv2types.AttributeValue
}

func itemKey(key map[string]awsv2types.AttributeValue) string {
	pk := key["PK"].(*awsv2types.AttributeValueMemberS).Value
	sk := key["SK"].(*awsv2types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeTable) GetItem(_ context.Context, in *awsv2dynamodb.GetItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.GetItemOutput, error) {
	return &awsv2dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *awsv2dynamodb.PutItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.PutItemOutput, error) {
	f.items[itemKey(in.Item)] = in.Item
	return &awsv2dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *awsv2dynamodb.DeleteItemInput, _ ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.DeleteItemOutput, error) {
	delete(f.items, itemKey(in.Key))
	return &awsv2dynamodb.DeleteItemOutput{}, nil
}

func newRepo(ttl time.Duration) (*SessionStateRepository, *fakeTable, context.Context) {
	table := &fakeTable{items: map[string]map[string]awsv2types.AttributeValue{}}
	repo := NewSessionStateRepository(&Client{db: table, tableName: "console"}, ttl)
	ctx, _ := xray.BeginSegment(context.Background(), "test")
	return repo, table, ctx
}

func TestSessionStateRepository_RoundTrip(t *testing.T) {
	repo, table, ctx := newRepo(time.Hour)
	state := domain.PersistedState{
		Roles:        []string{"AGENT"},
		Identity:     &domain.Identity{ID: "u1", Roles: []domain.Role{domain.RoleAgent}},
		AccessToken:  "at",
		RefreshToken: "rt",
	}
	require.NoError(t, repo.Save(ctx, "s1", state))

	item := table.items["SESSION#s1|STATE"]
	require.NotNil(t, item)
	for _, key := range []string{domain.StateKeyRoles, domain.StateKeyIdentity, domain.StateKeyAccessToken, domain.StateKeyRefreshToken, "ExpiresAt"} {
		assert.Contains(t, item, key)
	}

	got, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state, got)

	require.NoError(t, repo.Clear(ctx, "s1"))
	_, err = repo.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStateRepository_ExpiredItemIsMissing(t *testing.T) {
	repo, _, ctx := newRepo(time.Minute)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(ctx, "s1", domain.PersistedState{AccessToken: "at"}))
	now = now.Add(time.Hour)
	_, err := repo.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
