package crm

// Multi-value communication field (EMAIL, PHONE) as Bitrix24 stores it.
type MultiField struct {
	ID        string `json:"ID,omitempty"`
	Value     string `json:"VALUE"`
	ValueType string `json:"VALUE_TYPE,omitempty"`
}

type Contact struct {
	ID       string       `json:"ID"`
	Name     string       `json:"NAME"`
	LastName string       `json:"LAST_NAME,omitempty"`
	Email    []MultiField `json:"EMAIL,omitempty"`
	Phone    []MultiField `json:"PHONE,omitempty"`
}

// ContactFields is the payload of crm.contact.add.
type ContactFields struct {
	Name     string       `json:"NAME"`
	LastName string       `json:"LAST_NAME,omitempty"`
	Email    []MultiField `json:"EMAIL,omitempty"`
	Phone    []MultiField `json:"PHONE,omitempty"`
}

type Deal struct {
	ID              string `json:"ID"`
	Title           string `json:"TITLE"`
	DateCreate      string `json:"DATE_CREATE"`
	Opportunity     string `json:"OPPORTUNITY"`
	StageID         string `json:"STAGE_ID"`
	StageSemanticID string `json:"STAGE_SEMANTIC_ID"`
	ContactID       string `json:"CONTACT_ID,omitempty"`
}

// StageItem is one configured deal stage.
type StageItem struct {
	ID    string `json:"ID"`
	Value string `json:"VALUE"`
}

// Semantic ids Bitrix24 attaches to a stage. Older portals and some
// integrations report a won deal as "W" instead of "S".
const (
	SemanticProcess = "P"
	SemanticSuccess = "S"
	SemanticWon     = "W"
	SemanticFailure = "F"
)

// IsWon reports whether the semantic id marks a successfully closed deal.
func IsWon(semanticID string) bool {
	return semanticID == SemanticSuccess || semanticID == SemanticWon
}

var dealSelect = []string{"ID", "TITLE", "DATE_CREATE", "OPPORTUNITY", "STAGE_ID", "STAGE_SEMANTIC_ID", "CONTACT_ID"}

var contactSelect = []string{"ID", "NAME", "LAST_NAME", "EMAIL"}
