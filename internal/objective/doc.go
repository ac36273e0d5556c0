// Package objective turns the outputs of one or more systems into the
// scalar cost that drives extremum seeking controllers.
//
// A [Function] stacks the bound systems' outputs (bind order) into one
// measurement column per timestep and applies a pluggable [CostFunc]
// against a reference. The reference is either one value per timestep
// shared by every output ([Scalar]) or one series per output
// ([PerChannel]); without one a zero reference is used.
package objective
