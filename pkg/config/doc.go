// Package config loads the YAML deployment configuration of a link power
// manager: per-side timeouts, retry budgets, sequence names, the register
// snapshot layout, the suspend veto policy and the GPIO lines carrying
// WAKE and PERST.
//
// Durations are written as Go duration strings ("20ms", "5s"). Fields left
// out of the file keep the values from Default.
package config
