// Package types describes the staleguard annotation's declaration surface
// and the JSON document format the CLI consumes. The annotation members are
// plain configuration data; the rewrite logic lives in core/transform.
package types

// ArgType represents annotation member types
type ArgType string

const (
	TypeString ArgType = "string"
)

// AnnotationName is the annotation the rewrite pass recognizes
const AnnotationName = "staleguard"

// Declared member names
const (
	MemberRedirect    = "redirect"
	MemberParams      = "params"
	MemberMessageCode = "messageCode"
)

// Member defaults, applied when a member is absent from the annotation
const (
	DefaultRedirect    = "edit"
	DefaultParams      = "id"
	DefaultMessageCode = "optimistic.locking.failure"
)

// MemberSchema describes one annotation member
type MemberSchema struct {
	Name        string  `json:"name"`
	Type        ArgType `json:"type"`
	Default     string  `json:"default"`
	Description string  `json:"description"`
}

// Members returns the declared annotation members in declaration order
func Members() []MemberSchema {
	return []MemberSchema{
		{
			Name:        MemberRedirect,
			Type:        TypeString,
			Default:     DefaultRedirect,
			Description: "action name to redirect to when stale data is detected",
		},
		{
			Name:        MemberParams,
			Type:        TypeString,
			Default:     DefaultParams,
			Description: "comma-separated list of request parameter names forwarded to the redirect",
		},
		{
			Name:        MemberMessageCode,
			Type:        TypeString,
			Default:     DefaultMessageCode,
			Description: "message key resolved into the flash scope on stale data",
		},
	}
}

// MemberNames returns the declared member names in declaration order
func MemberNames() []string {
	members := Members()
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}
