package models

// AgentResponseSchema returns a JSON Schema for the AgentResponse struct.
// This schema enforces the structure expected from Claude CLI agent responses.
// It requires 'status' and 'summary' fields, uses enum constraints for status,
// and supports dynamic metadata through additionalProperties.
func AgentResponseSchema() string {
	return `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Agent Response",
  "description": "Structured JSON output from an agent task execution",
  "type": "object",
  "required": ["status", "summary"],
  "properties": {
    "status": {
      "type": "string",
      "enum": ["success", "failed"],
      "description": "Task execution status"
    },
    "summary": {
      "type": "string",
      "description": "Brief description of the result"
    },
    "output": {
      "type": "string",
      "description": "Full execution output"
    },
    "errors": {
      "type": "array",
      "items": {
        "type": "string"
      },
      "description": "List of error messages"
    },
    "files_modified": {
      "type": "array",
      "items": {
        "type": "string"
      },
      "description": "Paths of files modified during execution"
    },
    "metadata": {
      "type": "object",
      "additionalProperties": true,
      "description": "Additional execution metadata"
    },
    "session_id": {
      "type": "string",
      "description": "Claude CLI session ID (optional)"
    }
  },
  "additionalProperties": false
}`
}
