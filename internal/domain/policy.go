package domain

// PolicyInput is the document handed to the admin policy engine when an
// administrative operation is attempted.
type PolicyInput struct {
	Identity  PolicyIdentity `json:"identity"`
	Operation string         `json:"operation"`
	Target    string         `json:"target,omitempty"`
	Amount    uint64         `json:"amount,omitempty"`
	GateMode  string         `json:"gate_mode,omitempty"`
}

type PolicyIdentity struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles,omitempty"`
	Scopes  []string `json:"scopes,omitempty"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
