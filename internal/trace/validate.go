package trace

import "fmt"

// ValidationResult accumulates every structural violation found in a trace.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (r *ValidationResult) addf(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func validRelationship(rt RelationshipType) bool {
	for _, v := range RelationshipTypes {
		if rt == v {
			return true
		}
	}
	return false
}

func validExportType(et ExportType) bool {
	for _, v := range ExportTypes {
		if et == v {
			return true
		}
	}
	return false
}

// ValidateHighLevel checks a high-level trace structurally. It never panics
// and reports all violations, not just the first.
func ValidateHighLevel(t *HighLevelTrace) ValidationResult {
	res := ValidationResult{Valid: true, Errors: []string{}}
	if t == nil {
		res.addf("trace is nil")
		return res
	}

	if t.Version < 1 {
		res.addf("version must be a positive integer, got %d", t.Version)
	}
	if _, ok := ParseTimestamp(t.LastGenerated); !ok {
		res.addf("lastGenerated %q is not a valid timestamp", t.LastGenerated)
	}
	if t.GeneratedBy == "" {
		res.addf("generatedBy is empty")
	}

	seen := make(map[string]bool, len(t.Modules))
	for i, mod := range t.Modules {
		if mod.ID == "" {
			res.addf("modules[%d]: id is empty", i)
			continue
		}
		if seen[mod.ID] {
			res.addf("modules[%d]: duplicate id %q", i, mod.ID)
		}
		seen[mod.ID] = true
		if len(mod.FileGlobs) == 0 {
			res.addf("module %q: fileGlobs is empty", mod.ID)
		}
		for _, edge := range mod.Dependencies {
			validateEdge(&res, mod.ID, "dependencies", edge)
		}
		for _, edge := range mod.Dependents {
			validateEdge(&res, mod.ID, "dependents", edge)
		}
	}

	return res
}

func validateEdge(res *ValidationResult, moduleID, kind string, e Edge) {
	if e.TargetID == "" {
		res.addf("module %q: %s edge has empty targetId", moduleID, kind)
	}
	if !validRelationship(e.RelationshipType) {
		res.addf("module %q: %s edge to %q has invalid relationship %q",
			moduleID, kind, e.TargetID, e.RelationshipType)
	}
}

// ValidateLowLevel checks a low-level trace structurally, accumulating all
// violations.
func ValidateLowLevel(t *LowLevelTrace) ValidationResult {
	res := ValidationResult{Valid: true, Errors: []string{}}
	if t == nil {
		res.addf("trace is nil")
		return res
	}

	if t.ModuleID == "" {
		res.addf("moduleId is empty")
	}
	if t.Version < 1 {
		res.addf("version must be a positive integer, got %d", t.Version)
	}
	if _, ok := ParseTimestamp(t.LastGenerated); !ok {
		res.addf("lastGenerated %q is not a valid timestamp", t.LastGenerated)
	}
	if t.GeneratedBy == "" {
		res.addf("generatedBy is empty")
	}

	for i, f := range t.Files {
		if f.FilePath == "" {
			res.addf("files[%d]: filePath is empty", i)
		}
		for _, exp := range f.Exports {
			if exp.Symbol == "" {
				res.addf("file %q: export has empty symbol", f.FilePath)
			}
			if !validExportType(exp.Type) {
				res.addf("file %q: export %q has invalid type %q",
					f.FilePath, exp.Symbol, exp.Type)
			}
		}
		for _, imp := range f.Imports {
			if imp.Source == "" {
				res.addf("file %q: import has empty source", f.FilePath)
			}
		}
		for _, ev := range f.Events {
			if ev.Type != EventPublish && ev.Type != EventSubscribe {
				res.addf("file %q: event %q has invalid type %q",
					f.FilePath, ev.EventName, ev.Type)
			}
		}
	}

	return res
}
