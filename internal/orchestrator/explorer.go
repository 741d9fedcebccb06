package orchestrator

import (
	"fmt"
	"net/url"
)

// Explorer renders human-viewable transaction links.
type Explorer struct {
	// Network is the explorer host suffix, e.g. "solana.com".
	Network string
	// Cluster is appended as ?cluster=; empty omits the query.
	Cluster string
}

// DefaultExplorer points at the public devnet explorer.
var DefaultExplorer = Explorer{Network: "solana.com", Cluster: "devnet"}

// URL returns https://explorer.<network>/tx/<signature>?cluster=<cluster>.
func (e Explorer) URL(signature string) string {
	network := e.Network
	if network == "" {
		network = DefaultExplorer.Network
	}
	u := fmt.Sprintf("https://explorer.%s/tx/%s", network, url.PathEscape(signature))
	if e.Cluster != "" {
		u += "?cluster=" + url.QueryEscape(e.Cluster)
	}
	return u
}
