// Package plant provides the systems driven by extremum seeking controllers.
//
//   - [PassThrough]: stateless output function y = f(u)
//   - [Linear]: linear time-invariant model integrated with forward Euler
//
// A system is bound to the controllers that feed it. At index kt it reads
// each controller's control from index kt-1 (index 0 at kt = 0), so the
// plant never reacts to a control computed within the same timestep.
package plant
