package exporters

import "github.com/datasynth-ai/datasynth-engine/pkg/models"

// Filename builds the download filename for a rendered result from the job
// name and output format.
func Filename(jobName string, format models.OutputFormat) string {
	return sqlIdentifier(jobName) + "." + string(format)
}
