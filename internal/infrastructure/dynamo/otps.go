package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rast-auth-api/internal/domain"
)

// OTPRepo stores pending signup codes, one item per email.
// PK: email. expires_at is the table's TTL attribute, but DynamoDB removes
// expired items lazily, so every read and delete also checks it.
type OTPRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewOTPRepo(client API, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName, now: time.Now}
}

// Put replaces any code stored for email.
func (r *OTPRepo) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	now := r.now()
	item, err := attributevalue.MarshalMap(&domain.OTPRecord{
		Email:     email,
		Code:      code,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return unavailable("put otp", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, email string) (string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("email", email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", unavailable("get otp", err)
	}
	if out.Item == nil {
		return "", fmt.Errorf("otp: %w", domain.ErrNotFound)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return "", fmt.Errorf("unmarshal otp: %w", err)
	}
	if rec.ExpiresAt <= r.now().Unix() {
		return "", fmt.Errorf("otp expired: %w", domain.ErrNotFound)
	}
	return rec.Code, nil
}

// Consume atomically deletes and returns the live code for email.
func (r *OTPRepo) Consume(ctx context.Context, email string) (string, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("email", email),
		ConditionExpression:       aws.String("expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":now": r.nowAttr()},
		ReturnValues:              types.ReturnValueAllOld,
	})
	if isConditionFailed(err) {
		return "", fmt.Errorf("otp: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", unavailable("consume otp", err)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return "", fmt.Errorf("unmarshal otp: %w", err)
	}
	if rec.Code == "" {
		return "", fmt.Errorf("otp: %w", domain.ErrNotFound)
	}
	return rec.Code, nil
}

// ConsumeIfMatch deletes the record only when it is live and holds code.
// A mismatch leaves the record in place. Of two concurrent callers with the
// right code, DynamoDB's conditional delete lets exactly one observe true.
func (r *OTPRepo) ConsumeIfMatch(ctx context.Context, email, code string) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("email", email),
		ConditionExpression: aws.String("#c = :code AND expires_at > :now"),
		ExpressionAttributeNames: map[string]string{
			"#c": "code",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":code": &types.AttributeValueMemberS{Value: code},
			":now":  r.nowAttr(),
		},
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("consume otp", err)
	}
	return true, nil
}

func (r *OTPRepo) Ping(ctx context.Context) error {
	return ping(ctx, r.client, r.tableName)
}

func (r *OTPRepo) nowAttr() types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(r.now().Unix(), 10)}
}
