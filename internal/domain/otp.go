package domain

// OTPRecord is a pending signup code.
// PK: email. ExpiresAt is a Unix timestamp used as DynamoDB TTL; readers must
// still compare it against the clock because TTL deletion is lazy.
type OTPRecord struct {
	Email     string `json:"email" dynamodbav:"email"`
	Code      string `json:"code" dynamodbav:"code"`
	IssuedAt  int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}
