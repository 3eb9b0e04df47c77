// Package drafting turns a processable meeting into a follow-up email draft.
//
// The Generator assembles the meeting metadata, recipients, sender name and
// extracted meeting content into a prompt, sends it through the JSON-only LLM
// client, and validates the {subject, body} reply. Any failure (transport,
// malformed JSON, empty fields) is reported as an error and treated by the
// orchestrator as "no draft".
package drafting
