// Package validation schema-checks the YAML surfaces of a project: task
// descriptor frontmatter and platform profile files. The descriptor parser
// is deliberately tolerant; this package is the strict front door behind
// plugvet check, catching typos the parser would silently shrug off.
package validation

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/plugvet/plugvet/internal/registry"
	"github.com/plugvet/plugvet/schemas"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// frontmatterSchema is the compiled JSON Schema for descriptor frontmatter.
var frontmatterSchema *jsonschema.Schema

// profilesSchema is the compiled JSON Schema for platform profile files.
var profilesSchema *jsonschema.Schema

func init() {
	frontmatterSchema = mustCompileSchema(schemas.FrontmatterSchemaJSON, "frontmatter.schema.json")
	profilesSchema = mustCompileSchema(schemas.ProfilesSchemaJSON, "profiles.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateTaskDir validates the frontmatter of every task descriptor under
// root. The returned map is keyed by descriptor path relative to root;
// descriptors whose frontmatter is valid or absent are omitted.
func ValidateTaskDir(root string) (map[string][]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving task root: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("task root: %w", err)
	}

	taskErrs := make(map[string][]string)
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if d.IsDir() && path != absRoot && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if d.IsDir() && (d.Name() == "node_modules" || d.Name() == "vendor") {
			return fs.SkipDir
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), registry.DescriptorSuffix) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		if errs := ValidateTaskBytes(data); len(errs) > 0 {
			relPath, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				relPath = path
			}
			taskErrs[relPath] = errs
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}
	return taskErrs, nil
}

// ValidateTaskBytes validates the frontmatter block of a raw task document.
// A document without frontmatter has nothing to check and passes.
func ValidateTaskBytes(data []byte) []string {
	block, found, err := extractFrontmatter(data)
	if err != nil {
		return []string{fmt.Sprintf("frontmatter: %v", err)}
	}
	if !found {
		return nil
	}
	return ValidateFrontmatterBytes(block)
}

// ValidateFrontmatterBytes validates a raw YAML frontmatter block against
// the frontmatter schema.
func ValidateFrontmatterBytes(data []byte) []string {
	return validateYAMLBytes(frontmatterSchema, data)
}

// ValidateProfilesFile validates a platform profiles file at the given path.
func ValidateProfilesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}
	return ValidateProfilesBytes(data), nil
}

// ValidateProfilesBytes validates raw YAML bytes against the profiles schema.
func ValidateProfilesBytes(data []byte) []string {
	return validateYAMLBytes(profilesSchema, data)
}

// extractFrontmatter returns the raw YAML block between the leading "---"
// delimiters, using the same delimiter rules as the descriptor parser.
func extractFrontmatter(content []byte) ([]byte, bool, error) {
	s := string(content)
	if !strings.HasPrefix(s, "---") {
		return nil, false, nil
	}
	rest := s[3:]
	if strings.HasPrefix(rest, "\r\n") {
		rest = rest[2:]
	} else if strings.HasPrefix(rest, "\n") {
		rest = rest[1:]
	} else {
		return nil, false, nil
	}

	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return nil, true, fmt.Errorf("closing delimiter not found")
	}
	return []byte(rest[:idx]), true, nil
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}

	// yaml.v3 decodes mappings to map[string]any, which the validator
	// accepts; the walk only normalizes nested values.
	jsonCompatible := convertToJSONCompatible(yamlDoc)

	return validateAgainstSchema(schema, jsonCompatible)
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible normalizes YAML-decoded values for the validator.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}
