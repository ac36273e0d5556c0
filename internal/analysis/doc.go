// Package analysis inspects finished extremum seeking runs.
//
//   - [Spectrum] and [DominantFrequency]: where the cost oscillates, which
//     for a healthy loop is the probe frequency or its harmonic
//   - [Settle]: when a setpoint enters and stays inside a band
//   - [NewTrajectory] and [TrajectoryToASCII]: the path of a two-channel
//     setpoint in the plane
//   - [SweepTail] and [SweepToASCII]: distinct late-run values against a
//     swept parameter
//
// A converged single-channel run typically looks like:
//
//	f := analysis.DominantFrequency(psi, dt) // ~ 2*fes near the optimum
//	s := analysis.Settle(thetahat, dt, 5, 0.05)
package analysis
