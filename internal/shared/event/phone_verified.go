package event

const PhoneVerifiedDestination string = "selfieauth_phone_verified"

type PhoneVerifiedMessage struct {
	FlowID      string `json:"flow_id"`
	PhoneNumber string `json:"phone_number"`
	VerifiedAt  int64  `json:"verified_at"` // unix millis
}
