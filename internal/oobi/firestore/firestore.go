// Package firestore implements oobi.Store on top of Google Cloud
// Firestore, following the enabled/no-op client shape used elsewhere in
// this codebase for optional cloud-backed components: construction never
// fails merely because the feature is turned off, and every operation is a
// silent no-op (success, empty result) when it is.
package firestore

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/oobi"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/transport"
)

// Config configures a Store's connection to Firestore.
type Config struct {
	// ProjectID is the Firebase/GCP project ID.
	ProjectID string

	// CredentialsFile is the path to a service account JSON file. If
	// empty, the SDK falls back to GOOGLE_APPLICATION_CREDENTIALS or
	// application default credentials.
	CredentialsFile string

	// Enabled controls whether Firestore operations actually run. If
	// false, SaveOOBI/GetLocScheme/GetEndRole are no-ops, which keeps a
	// controller runnable without cloud credentials during local
	// development or tests.
	Enabled bool

	// Logger logs store activity. Defaults to a package-prefixed logger
	// writing to stdout.
	Logger *log.Logger
}

// DefaultConfig builds a Config from environment variables:
// OOBI_FIRESTORE_PROJECT_ID, GOOGLE_APPLICATION_CREDENTIALS, and
// OOBI_FIRESTORE_ENABLED.
func DefaultConfig() *Config {
	return &Config{
		ProjectID:       os.Getenv("OOBI_FIRESTORE_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Enabled:         os.Getenv("OOBI_FIRESTORE_ENABLED") == "true",
		Logger:          log.New(os.Stdout, "[oobi/firestore] ", log.LstdFlags),
	}
}

// Store persists OOBI replies as Firestore documents, one collection keyed
// by identifier and sub-document keyed by route.
type Store struct {
	app    *firebase.App
	client *gcpfirestore.Client
	logger *log.Logger
	mu     sync.RWMutex
}

// New builds a Store from cfg. When cfg.Enabled is false, the returned
// Store requires no network access and every method is a no-op.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[oobi/firestore] ", log.LstdFlags)
	}
	s := &Store{logger: cfg.Logger}

	if !cfg.Enabled {
		cfg.Logger.Println("Firestore OOBI store is DISABLED - running in no-op mode")
		return s, nil
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("oobi/firestore: ProjectID is required when enabled")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("oobi/firestore: initializing Firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("oobi/firestore: creating Firestore client: %w", err)
	}

	s.app, s.client = app, client
	cfg.Logger.Printf("Firestore OOBI store initialized for project: %s", cfg.ProjectID)
	return s, nil
}

// Close releases the underlying Firestore client, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// IsEnabled reports whether the store is backed by a live Firestore client.
func (s *Store) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

func docPath(id primitive.Identifier, route string) (string, error) {
	text, err := id.Text()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("oobis/%s/replies/%s", text, sanitizeRoute(route)), nil
}

// sanitizeRoute replaces the slashes a route carries (e.g. "/loc/scheme")
// so it can be used as a single Firestore document ID segment.
func sanitizeRoute(route string) string {
	out := make([]byte, len(route))
	for i := 0; i < len(route); i++ {
		if route[i] == '/' {
			out[i] = '_'
		} else {
			out[i] = route[i]
		}
	}
	return string(out)
}

func (s *Store) SaveOOBI(signed oobi.SignedReply) error {
	if !s.IsEnabled() {
		s.logger.Printf("Firestore disabled - skipping OOBI save for route=%s", signed.Reply.Route)
		return nil
	}
	subject, ok := oobi.SubjectOf(signed.Reply.Data)
	if !ok {
		return oobi.ErrNoSubject
	}
	path, err := docPath(subject, signed.Reply.Route)
	if err != nil {
		return err
	}

	ctx := context.Background()
	existing, err := s.client.Doc(path).Get(ctx)
	if err == nil {
		var prior struct {
			Timestamp string `firestore:"timestamp"`
		}
		if decodeErr := existing.DataTo(&prior); decodeErr == nil && signed.Reply.Timestamp <= prior.Timestamp {
			return nil
		}
	}

	signerText, err := signerTextOf(signed.Signer)
	if err != nil {
		return err
	}
	_, err = s.client.Doc(path).Set(ctx, map[string]any{
		"route":     signed.Reply.Route,
		"timestamp": signed.Reply.Timestamp,
		"data":      signed.Reply.Data,
		"signer":    signerText,
	})
	if err != nil {
		s.logger.Printf("failed to save OOBI reply at %s: %v", path, err)
		return fmt.Errorf("oobi/firestore: saving reply: %w", err)
	}
	return nil
}

func (s *Store) GetLocScheme(id primitive.Identifier) ([]transport.LocScheme, error) {
	if !s.IsEnabled() {
		return nil, nil
	}
	data, err := s.fetchData(id, event.LocationSchemeRoute)
	if err != nil || data == nil {
		return nil, err
	}
	return oobi.DecodeLocSchemes(data), nil
}

func (s *Store) GetEndRole(id primitive.Identifier, role transport.Role) ([]primitive.Identifier, error) {
	if !s.IsEnabled() {
		return nil, nil
	}
	data, err := s.fetchData(id, event.EndRoleRoute+"/"+string(role))
	if err != nil || data == nil {
		return nil, err
	}
	return oobi.DecodeEndRoles(data), nil
}

func (s *Store) fetchData(id primitive.Identifier, route string) (map[string]any, error) {
	path, err := docPath(id, route)
	if err != nil {
		return nil, err
	}
	snap, err := s.client.Doc(path).Get(context.Background())
	if err != nil {
		return nil, nil // not found is not an error: no OOBI saved yet
	}
	var doc struct {
		Data map[string]any `firestore:"data"`
	}
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("oobi/firestore: decoding reply at %s: %w", path, err)
	}
	return doc.Data, nil
}

// signerTextOf renders signer's typed text frame, or "" for the zero
// Identifier (a SignedReply built without a known signer).
func signerTextOf(signer primitive.Identifier) (string, error) {
	if signer.Kind == primitive.Basic && len(signer.PubKey) == 0 {
		return "", nil
	}
	if signer.Kind == primitive.SelfAddressing && signer.Digest.IsZero() {
		return "", nil
	}
	return signer.Text()
}

var _ oobi.Store = (*Store)(nil)
