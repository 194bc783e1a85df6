package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// App bundles the Firebase clients the service uses.
type App struct {
	app       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
}

// Config selects the Firebase project. An empty CredentialsFile uses
// application default credentials.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// NewApp initializes the Admin SDK and its Auth and Firestore clients.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase auth: %w", err)
	}
	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore: %w", err)
	}
	return &App{app: app, Auth: authClient, Firestore: firestoreClient}, nil
}

// Close releases the Firestore connection.
func (a *App) Close() error {
	return a.Firestore.Close()
}
