package gesture

// Reduce folds one frame's batch into prev and returns the next snapshot.
//
// Gestures reported in the batch overwrite their flag; gestures missing
// from the batch keep the flag they had in prev. Entries that are not
// discrete or whose name is not recognized are skipped. Confidence is the
// highest confidence among gestures detected in this batch, or 0 when none
// was detected.
func Reduce(prev State, batch Batch) State {
	next := State{
		Tracked: true,
		Flags:   prev.Flags,
	}

	for def, result := range batch {
		if def.Kind != KindDiscrete {
			continue
		}
		i, ok := Index(def.Name)
		if !ok {
			continue
		}

		next.Flags[i] = result.Detected
		if result.Detected && result.Confidence > next.Confidence {
			next.Confidence = result.Confidence
		}
	}

	next.Active = next.Flags.first()
	return next
}

// ReduceUntracked returns the snapshot for a body whose tracking was lost.
// Nothing from the previous snapshot survives.
func ReduceUntracked() State {
	return State{}
}
