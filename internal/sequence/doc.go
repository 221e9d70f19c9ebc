// Package sequence owns robot command programs and their steps.
//
// A Sequence is an ordered list of Steps; insertion order is execution
// order. Steps are validated against the action catalog and the duration
// invariant before any change is stored.
//
// # Components
//
//   - Store: thread-safe cache over a Repository, the only mutation path
//   - SQLiteRepository: persistence, steps stored as a JSON column
//
// # Deletion
//
// Deleting a sequence that schedules reference is rejected by default
// (ErrReferencedBySchedule). With PolicyCascade the referencing schedules
// are deactivated first. The schedule store plugs in through
// ScheduleReferences.
//
// # Usage
//
//	store := sequence.NewStore(sequence.NewSQLiteRepository(db.DB))
//	if err := store.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	seq, _ := store.Create(ctx, "Morning patrol")
//	stepID, err := store.AddStep(ctx, seq.ID, action.MoveForward, "60", 5)
package sequence
