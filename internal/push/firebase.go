package push

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Clients bundles the Firebase handles the push subsystem needs.
type Clients struct {
	Messaging *messaging.Client
	Firestore *firestore.Client
}

// NewClients initializes the Firebase app and derives the messaging and
// Firestore clients. credFile may be empty to use application default
// credentials.
func NewClients(ctx context.Context, projectID, credFile string) (*Clients, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}

	return &Clients{
		Messaging: messagingClient,
		Firestore: firestoreClient,
	}, nil
}

// Close releases the Firestore client.
func (c *Clients) Close() error {
	if c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}
