// Package scheduler relocates the duty cycles of flexible appliances (washing
// machine, dishwasher, dryer) into admissible time windows. Windows come from
// tariff, custom and occupancy masks built with the helpers in this package.
// Shifted traces and statistics can be exported to JSON or CSV through
// pkg/export.
package scheduler
