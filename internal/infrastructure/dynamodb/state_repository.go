package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-xray-sdk-go/xray"
	"helpdesk-console/internal/domain"
)

type stateItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	Roles        string `dynamodbav:"roles,omitempty"`
	Identity     string `dynamodbav:"identity,omitempty"`
	AccessToken  string `dynamodbav:"access_token,omitempty"`
	RefreshToken string `dynamodbav:"refresh_token,omitempty"`
	UpdatedAt    string `dynamodbav:"UpdatedAt"`
	// ExpiresAt is the table's TTL attribute, in epoch seconds.
	ExpiresAt int64 `dynamodbav:"ExpiresAt,omitempty"`
}

// SessionStateRepository stores one item per browser session in the single table.
type SessionStateRepository struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionStateRepository(client *Client, ttl time.Duration) *SessionStateRepository {
	return &SessionStateRepository{client: client, ttl: ttl, now: time.Now}
}

func (r *SessionStateRepository) Load(ctx context.Context, sessionID string) (domain.PersistedState, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetSessionState", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName:      aws.String(r.client.tableName),
			Key:            stateKey(sessionID),
			ConsistentRead: aws.Bool(true),
		})
		return e
	})
	if err != nil {
		return domain.PersistedState{}, err
	}
	if out.Item == nil {
		return domain.PersistedState{}, domain.ErrNotFound
	}
	var raw stateItem
	if err := attributevalue.UnmarshalMap(out.Item, &raw); err != nil {
		return domain.PersistedState{}, err
	}
	// TTL deletion in DynamoDB is lazy.
	if raw.ExpiresAt > 0 && r.now().Unix() >= raw.ExpiresAt {
		return domain.PersistedState{}, domain.ErrNotFound
	}
	return domain.StateFromFields(map[string]string{
		domain.StateKeyRoles:        raw.Roles,
		domain.StateKeyIdentity:     raw.Identity,
		domain.StateKeyAccessToken:  raw.AccessToken,
		domain.StateKeyRefreshToken: raw.RefreshToken,
	}), nil
}

func (r *SessionStateRepository) Save(ctx context.Context, sessionID string, state domain.PersistedState) error {
	if sessionID == "" {
		return domain.ErrInvalidInput
	}
	fields, err := state.Fields()
	if err != nil {
		return err
	}
	now := r.now().UTC()
	item := stateItem{
		PK:           sessionPK(sessionID),
		SK:           stateSK(),
		EntityType:   "SESSION_STATE",
		Roles:        fields[domain.StateKeyRoles],
		Identity:     fields[domain.StateKeyIdentity],
		AccessToken:  fields[domain.StateKeyAccessToken],
		RefreshToken: fields[domain.StateKeyRefreshToken],
		UpdatedAt:    now.Format(time.RFC3339),
	}
	if r.ttl > 0 {
		item.ExpiresAt = now.Add(r.ttl).Unix()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutSessionState", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName: aws.String(r.client.tableName),
			Item:      av,
		})
		return err
	})
}

func (r *SessionStateRepository) Clear(ctx context.Context, sessionID string) error {
	return xray.Capture(ctx, "DynamoDB.DeleteSessionState", func(ctx context.Context) error {
		_, err := r.client.db.DeleteItem(ctx, &awsv2dynamodb.DeleteItemInput{
			TableName: aws.String(r.client.tableName),
			Key:       stateKey(sessionID),
		})
		return err
	})
}
