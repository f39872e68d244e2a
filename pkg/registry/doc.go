// Package registry holds the per-variant clock root tables of the CCM_OBS
// observation peripheral.
//
// Each supported i.MX RT variant is described by a manifest compiled into
// the binary (manifests/<variant>.yaml). A manifest records the register
// layout of the peripheral (base address, slice stride, slice count,
// selector width, counter offset) and the observable clock roots with their
// mux selector codes, slice numbers and rated maxima. The manifest revision
// identifies the register contract a table was written against. Roots are
// served sorted by name whatever order the manifest lists them in.
//
// # Basic Usage
//
//	reg, err := registry.ForVariant(registry.IMXRT1170)
//	if err != nil {
//	    return err
//	}
//	root, err := reg.Lookup("bus")   // resolves BUS_CLK_ROOT
//	all := reg.All()                 // sorted by name
//
// # Name Matching
//
// Names are matched case-insensitively. A name that omits the "_CLK_ROOT"
// or "_OUT" suffix also matches, so "m7", "M7_CLK_ROOT" and "m7_clk_root"
// all resolve to M7_CLK_ROOT.
package registry
