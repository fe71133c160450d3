// Package schemas embeds the JSON Schemas behind plugvet check.
package schemas

import _ "embed"

// FrontmatterSchemaJSON validates the YAML frontmatter block of a task
// descriptor.
//
//go:embed frontmatter.schema.json
var FrontmatterSchemaJSON string

// ProfilesSchemaJSON validates a platform profiles file.
//
//go:embed profiles.schema.json
var ProfilesSchemaJSON string
