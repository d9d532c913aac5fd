package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	DeclarationDetectDescription = `Detect which kind of declaration a PDF is from its embedded text.

**When to use:** Before signing, to find out whether the form is the company, foreigner or israeli variant.

**Why it's useful:** The placement of the second signature depends on the variant. Detection reads the text of each page and applies a fixed keyword order.

**Rules (first match wins, pages in order):**
• "פרטי החברה השוכרת" → company
• "זר" → foreigner
• nothing matched → israeli

**Examples:**
• "Which type is rental-declaration.pdf?"
• "Check declarations/acme.pdf before signing it"

**Best practices:** A scanned PDF without a text layer cannot be detected; pass the type explicitly to declaration_sign instead.`

	DeclarationSignDescription = `Stamp the notary text and placeholder signatures onto page 1 of a declaration.

**When to use:** Producing the signed copy of a declaration for a given signer.

**Why it's useful:** Builds the Hebrew notary paragraph with the signer's name, ID and gendered phrasing, places both placeholder signatures for the declaration type and writes a new PDF. The source is never modified.

**Examples:**
• "Sign rental.pdf for Dana Levi, ID 123456789, female"
• "Sign acme.pdf as a company declaration for Avi Cohen"

**Output:** The path of the new file. The name is derived from the source name, signer and type, so signing twice replaces the earlier copy.

**Best practices:** Omit type to let the detector decide; set it when the PDF has no text layer.`

	DeclarationListDescription = `List the declaration PDFs in a directory together with their detected type.

**When to use:** Reviewing a folder of incoming declarations before signing them in bulk.

**Examples:**
• "List all declarations in the working directory"
• "Find declarations whose name contains 'acme'"

**Best practices:** Files that cannot be detected are still listed with the reason.`

	DeclarationServerInfoDescription = `Get server status, configured directories, signature assets and available tools.

**When to use:** Starting a session or troubleshooting a failed signing.

**Why it's useful:** Shows whether the signature images and renderer were found without having to sign a document first.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"declaration_detect":      DeclarationDetectDescription,
	"declaration_sign":        DeclarationSignDescription,
	"declaration_list":        DeclarationListDescription,
	"declaration_server_info": DeclarationServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all tool names in alphabetical order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
