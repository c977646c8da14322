package export

import (
	"fmt"
	"strconv"
	"strings"
)

// TemplateRequiredError is raised when a writer whose output format cannot address
// multiple steps/variables in one file (GeoTIFF, §4.9) is configured with a path template
// that names neither {step} nor {variable}.
type TemplateRequiredError struct {
	Format string
}

func (e *TemplateRequiredError) Error() string {
	return fmt.Sprintf("export: %s path template must reference {step} or {variable}", e.Format)
}

// ExpandPath substitutes {step}, {variable}, and {replicate} tokens in template. Formats
// that encode replicate as a column/dimension instead of a path component (CSV, NetCDF)
// should strip {replicate} from their template before calling this, or simply never
// include it.
func ExpandPath(template string, step int, variable string, replicate int) string {
	r := strings.NewReplacer(
		"{step}", strconv.Itoa(step),
		"{variable}", variable,
		"{replicate}", strconv.Itoa(replicate),
	)
	return r.Replace(template)
}

// RequireStepOrVariable enforces GeoTIFF's one-raster-per-file constraint (§4.9
// "GeoTIFF requires {step} or {variable} else TemplateRequired").
func RequireStepOrVariable(format, template string) error {
	if strings.Contains(template, "{step}") || strings.Contains(template, "{variable}") {
		return nil
	}
	return &TemplateRequiredError{Format: format}
}
