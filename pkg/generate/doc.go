// Package generate produces card artwork with a generative image backend.
//
// # Backends
//
// A [Backend] turns a prompt into images. Two are provided:
//
//   - [CommandBackend] runs an external generator once per image and reads the
//     PNG it writes. Any local diffusion CLI can be plugged in this way.
//   - [PlaceholderBackend] paints deterministic gradients. It needs no model
//     and is used offline and in tests.
//
// A [Model] wraps a [Loader] into a lazily loaded, mutex-guarded handle: the
// backend is built on first use, rebuilt when the model path changes, and
// only one generation runs through it at a time.
//
// # Jobs
//
// An [Orchestrator] runs one [Job] at a time:
//
//	job, err := orch.Start(ctx, card, 4)
//	for ev := range job.Events() {
//	    // EventImage per image, then one EventDone
//	}
//
// A job moves from Running to exactly one of Completed, Aborted or Failed.
// Images are produced one per backend call. The abort flag is checked before
// each call; a call already in flight is not interrupted and its image is
// kept. Produced images are never discarded, whatever the final state.
// Starting a job while another is running returns [errors.ErrBusy].
//
// [errors.ErrBusy]: github.com/matzehuels/cardforge/pkg/errors.ErrBusy
package generate
