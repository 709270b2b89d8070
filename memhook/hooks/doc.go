// Package hooks contains ready-made memory hooks.
//
//   - DebugPrintHook logs every allocation callback with structured fields.
//   - LineProfileHook aggregates allocation traffic per calling site and
//     renders a report table.
//   - MetricsHook exports pool traffic as Prometheus metrics.
//
// All of them embed memhook.BaseHook and are registered the usual way:
//
//	err := memhook.With(hooks.NewDebugPrintHook(logger), func() error {
//	    return workload(p)
//	})
package hooks
