// Package engine runs a word count pipeline as a managed set of components.
//
// The engine turns a config.ComponentConfigs map into live component
// instances, validates that their NATS subjects actually line up, starts
// them in an order that avoids dropped batches, and tears everything down
// in reverse when the run ends.
//
// # Lifecycle
//
// A pipeline run follows a fixed sequence:
//
//	eng, err := engine.New(registry, deps, metricsRegistry)
//	err = eng.Initialize(cfg.Components)  // create + initialize instances
//	report, err = eng.ValidateWiring()    // optional wiring sanity check
//	err = eng.Start(ctx)                  // outputs, processors, inputs
//	err = eng.AwaitTermination(ctx, 0)    // block until signal
//	err = eng.Stop(30 * time.Second)      // inputs, processors, outputs
//
// Run wraps the last three steps for the common case.
//
// # Start order
//
// Components start grouped by type: outputs first, then processors, then
// inputs. A subscriber that starts after its publisher misses everything
// published in between, so the source is always last up and first down.
// Within a group, instances start in name order.
//
// # Wiring validation
//
// ValidateWiring builds a flow graph from the components' declared ports
// and auto-connects outputs to inputs that share a NATS subject. A required
// stream input with no publisher is reported as an error; everything else
// unmatched is a warning. The engine never blocks startup on the report,
// that decision belongs to the caller.
package engine
