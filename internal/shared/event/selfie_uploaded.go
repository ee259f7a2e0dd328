package event

const SelfieUploadedDestination string = "selfieauth_selfie_uploaded"

type SelfieUploadedMessage struct {
	FlowID      string `json:"flow_id"`
	PhoneNumber string `json:"phone_number"`
	ImageURL    string `json:"image_url,omitempty"`
	UploadedAt  int64  `json:"uploaded_at"` // unix millis
}
