package credential_test

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonwraymond/relayops/credential"
)

func ExampleNewProvider() {
	source := credential.NewAPIKeySource("sk-live-abc123")
	provider := credential.NewProvider(source, credential.ProviderConfig{})
	defer provider.Close()

	cred, err := provider.Get(context.Background(), []string{"read"})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println("Minted:", cred)
	// Output:
	// Minted: credential:[REDACTED]
}

func ExampleCredential_MarshalJSON() {
	cred := credential.NewCredential("sk-live-abc123", time.Time{}, []string{"read", "write"})

	// The secret never serializes; only the redaction marker does.
	data, _ := json.Marshal(map[string]any{"credential": cred, "scopes": cred.Scopes})
	fmt.Println(string(data))
	// Output:
	// {"credential":"[REDACTED]","scopes":["read","write"]}
}
