package llm

import "fmt"

const systemPrompt = "You are a Brazilian fiscal document (NF-e/DANFE) extraction engine. " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, " +
	"markdown formatting, or commentary before or after the JSON. " +
	"Start your response directly with { and end with }."

// buildExtractionPrompt asks the model for the canonical payload fields.
func buildExtractionPrompt(text string) string {
	return fmt.Sprintf(`Extract the following fields from this DANFE/NF-e text and answer as JSON:
{
  "cfop": "<4 digit CFOP of the operation>",
  "emitter_uf": "<two letter UF of the emitter>",
  "destination_uf": "<two letter UF of the recipient>",
  "total_value": <total value of the document as a number>,
  "items": [
    {"description": "<product description>", "ncm": "<8 digit NCM or empty string>", "value": <line value as a number>}
  ]
}

Use plain decimal numbers (dot separator, no thousands separators). If a
field cannot be found, use an empty string for text fields and 0 for numbers.

Document text:
%s`, text)
}
