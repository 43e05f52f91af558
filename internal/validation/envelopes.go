package validation

// Envelope names a request body shape.
type Envelope string

const (
	EnvelopePutContent          Envelope = "put_content"
	EnvelopePublish             Envelope = "publish"
	EnvelopeUnpublish           Envelope = "unpublish"
	EnvelopeDiscardDraft        Envelope = "discard_draft"
	EnvelopePatchLinks          Envelope = "patch_links"
	EnvelopePutContentWithLinks Envelope = "put_content_with_links"
	EnvelopeReservePath         Envelope = "reserve_path"
)

// Envelopes only check JSON types. Domain rules (required attributes, path
// syntax, link keys) are reported by the lifecycle service as 422.
var envelopes = map[Envelope]string{
	EnvelopePutContent: `{
		"type": "object",
		"properties": {
			"base_path": {"type": "string"},
			"format": {"type": "string"},
			"schema_name": {"type": "string"},
			"document_type": {"type": "string"},
			"title": {"type": ["string", "null"]},
			"description": {},
			"details": {"type": ["object", "null"]},
			"locale": {"type": "string"},
			"publishing_app": {"type": "string"},
			"rendering_app": {"type": ["string", "null"]},
			"phase": {"type": "string"},
			"analytics_identifier": {"type": ["string", "null"]},
			"public_updated_at": {"type": ["string", "null"]},
			"first_published_at": {"type": ["string", "null"]},
			"need_ids": {"type": "array", "items": {"type": "string"}},
			"routes": {"$ref": "#/$defs/routes"},
			"redirects": {"$ref": "#/$defs/routes"},
			"links": {"type": "object"},
			"update_type": {"type": "string"},
			"previous_version": {"type": ["integer", "string", "null"]}
		},
		"$defs": {
			"routes": {"type": "array", "items": {"type": "object"}}
		}
	}`,
	EnvelopePublish: `{
		"type": "object",
		"properties": {
			"update_type": {"type": "string"},
			"locale": {"type": "string"},
			"previous_version": {"type": ["integer", "string", "null"]}
		}
	}`,
	EnvelopeUnpublish: `{
		"type": "object",
		"required": ["type"],
		"properties": {
			"type": {"type": "string"},
			"explanation": {"type": ["string", "null"]},
			"alternative_path": {"type": ["string", "null"]},
			"discard_drafts": {"type": "boolean"},
			"locale": {"type": "string"},
			"previous_version": {"type": ["integer", "string", "null"]}
		}
	}`,
	EnvelopeDiscardDraft: `{
		"type": "object",
		"properties": {
			"locale": {"type": "string"},
			"previous_version": {"type": ["integer", "string", "null"]}
		}
	}`,
	EnvelopePatchLinks: `{
		"type": "object",
		"required": ["links"],
		"properties": {
			"links": {"type": "object"},
			"previous_version": {"type": ["integer", "string", "null"]}
		}
	}`,
	EnvelopePutContentWithLinks: `{
		"type": "object",
		"properties": {
			"content_id": {"type": ["string", "null"]},
			"base_path": {"type": "string"},
			"publishing_app": {"type": "string"},
			"update_type": {"type": "string"},
			"links": {"type": "object"},
			"routes": {"type": "array", "items": {"type": "object"}},
			"redirects": {"type": "array", "items": {"type": "object"}}
		}
	}`,
	EnvelopeReservePath: `{
		"type": "object",
		"properties": {
			"publishing_app": {"type": "string"}
		}
	}`,
}
