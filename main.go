package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/selfieauth/internal/app"
)

// @title           SelfieAuth API
// @version         1.0
// @description     SelfieAuth walks a user through phone number, WhatsApp OTP and a selfie liveness check.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
func main() {
	application := app.New()    // Initialize the application
	wait := application.Start() // Start the application and wait for the termination signal
	<-wait                      // Wait for the application to receive a termination signal
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx) // Stop the application gracefully
}
