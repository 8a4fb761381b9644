package orchestrator

import "github.com/loomworks/loom"

// updateContext derives the next iteration's base context from a
// successful step's result. The previous context is always copied first;
// only ingestion and blueprint kinds promote values out of the result,
// other kinds leave the context structurally unchanged beyond the copy.
func (o *Orchestrator) updateContext(kind loom.Kind, pc *loom.Context, res *loom.Result) *loom.Context {
	next := pc.Clone()

	switch kind {
	case loom.KindIngest:
		if d, ok := res.Data.(loom.IngestData); ok && len(d.SourceDataIDs) > 0 {
			next.SourceDataIDs = append(next.SourceDataIDs, d.SourceDataIDs...)
			// Single-file convenience mirror, only when exactly one
			// identifier was produced by this step.
			if len(d.SourceDataIDs) == 1 {
				next.SourceDataID = d.SourceDataIDs[0]
			}
		}
		if topic := res.MetadataString("topic_name"); topic != "" {
			next.TopicName = topic
		}

	case loom.KindBlueprint:
		if d, ok := res.Data.(loom.BlueprintData); ok && d.BlueprintID != "" {
			next.BlueprintID = d.BlueprintID
		}
		if topic := res.MetadataString("topic_name"); topic != "" {
			next.TopicName = topic
		}
	}

	return next
}
