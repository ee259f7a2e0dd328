package strcase

import "testing"

func TestToLowerSnake(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"OTP":         "otp",
		"PhoneNumber": "phone_number",
		"OTPCode":     "otp_code",
		"FlowID":      "flow_id",
		"Image2Data":  "image2_data",
		"login":       "login",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := ToLowerSnake(in); got != want {
				t.Fatalf("ToLowerSnake(%q) = %q, want %q", in, got, want)
			}
		})
	}
}
