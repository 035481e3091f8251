package extraction

import "fmt"

// workRecordSystemPrompt instructs the model to answer with structured
// data only; the target schema is embedded in the user prompt.
const workRecordSystemPrompt = `You are an assistant that extracts structured work log information from free-form text written by a freelancer.
Identify the client name, project name, work date, hours worked, description of the work, and an optional category.
Respond ONLY with a single JSON object. Do not add commentary, markdown fences, or any text outside the JSON object.
Never invent a client or project name that is not mentioned in the text. Omit any field you cannot determine from the text.`

// workRecordSchemaLiteral is the literal schema description embedded in
// every extraction prompt.
const workRecordSchemaLiteral = `{
  "client": "string, client name exactly as mentioned (omit if not mentioned)",
  "project": "string, project name exactly as mentioned (omit if not mentioned)",
  "work_date": "string, ISO date YYYY-MM-DD (omit if not mentioned)",
  "hours": "number, hours worked, must be greater than 0 (omit if not mentioned)",
  "description": "string, concise professional description of the work performed (required)",
  "category": "string, short category label such as Development, Design, Meeting (omit if unclear)",
  "billable": "boolean, whether the work is billable (omit unless stated)",
  "tags": "array of short string labels (omit if none)"
}`

func buildExtractionPrompt(freeText string) string {
	return fmt.Sprintf(`Extract a structured work log entry from the following text.

Text:
%s

Return a JSON object matching this schema:
%s`, freeText, workRecordSchemaLiteral)
}

// buildRepairPrompt asks the model to fix a response that did not parse.
// At most one repair pass is attempted per extraction.
func buildRepairPrompt(badOutput string) string {
	return fmt.Sprintf(`Your previous response was not valid JSON:

%s

Return the same information as a single valid JSON object matching this schema, with no surrounding text:
%s`, badOutput, workRecordSchemaLiteral)
}
