package peering

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"strings"
	"time"

	utilrand "k8s.io/apimachinery/pkg/util/rand"
)

// IdentityEnvVars are checked in order for an externally provided instance id,
// usually the pod name injected through the downward API.
var IdentityEnvVars = []string{"POD_ID", "POD_NAME"}

// DetectOwnID returns the id of the running instance. Without an injected
// identity it is built from the local user, the host name, the start time
// and a random suffix, which is enough to tell apart ad-hoc runs on a shared
// workstation.
func DetectOwnID() string {
	for _, key := range IdentityEnvVars {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fmt.Sprintf("%s@%s/%s/%s", currentUser(), fqdn(), time.Now().UTC().Format(time.RFC3339), utilrand.String(6))
}

// DetectManualID returns the id used for manual freezes: stable across runs
// of the same user on the same host, so a later resume finds the entry.
func DetectManualID() string {
	for _, key := range IdentityEnvVars {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fmt.Sprintf("%s@%s", currentUser(), fqdn())
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return "unknown"
}

func fqdn() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}
	cname, err := net.LookupCNAME(host)
	if err != nil || cname == "" {
		return host
	}
	return strings.TrimSuffix(cname, ".")
}
