package factmat

import (
	"github.com/ruleweave/factmat/internal/gen"
)

// GenerateSource renders ordinary Go struct source for schemas known
// ahead of time, one struct per schema. Deployments with a fixed schema
// set can generate at build time and skip runtime struct construction
// entirely.
func GenerateSource(pkg string, schemas []*ObjectSchema) ([]byte, error) {
	defs := make([]gen.TypeDef, 0, len(schemas))
	for _, s := range schemas {
		def := gen.TypeDef{
			Name: s.Name,
			Doc:  s.Name + " is materialized from the " + s.Name + " schema.",
		}
		for _, f := range s.Fields {
			goName, err := exportName(f.Name)
			if err != nil {
				return nil, &MaterializationError{
					Schema:      s.Name,
					Field:       f.Name,
					Source:      renderSchemaSource(s),
					Diagnostics: []string{err.Error()},
					Cause:       err,
				}
			}
			def.Fields = append(def.Fields, gen.FieldDef{
				GoName:  goName,
				GoType:  goTypeName(f),
				JSONTag: f.Name,
			})
		}
		defs = append(defs, def)
	}
	return gen.RenderStructs(pkg, defs)
}
