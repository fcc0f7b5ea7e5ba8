// utils/firebase.go
package utils

import (
	"context"

	"stylo/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var FCMClient *messaging.Client

// FirebaseInit initializes the Firebase App and Messaging client from
// FIREBASE_CREDENTIALS_FILE. Without credentials staff push stays off.
func FirebaseInit() *messaging.Client {
	path := config.AppConfig.FirebaseCredentialsFile
	if path == "" {
		GetLogger().Info("FIREBASE_CREDENTIALS_FILE not set, staff push disabled")
		return nil
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(path))
	if err != nil {
		GetLogger().Error("firebase: error initializing app", zap.Error(err))
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		GetLogger().Error("firebase: error getting Messaging client", zap.Error(err))
		return nil
	}

	FCMClient = client
	return client
}
