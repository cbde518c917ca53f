package config

import "embed"

// SchemaFS contains the embedded configuration JSON schema. Regenerate with
// tools/schemagen after changing the Config structs.
//
//go:embed spikefang-schema.json
var SchemaFS embed.FS

// SchemaName is the embedded schema file name.
const SchemaName = "spikefang-schema.json"
