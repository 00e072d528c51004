/*
Package mcm implements a Markov-chain mixture distribution model for
probabilistic forecasting of scalar time series.

The model discretizes the observed value range into fixed-width bins,
estimates a bin-to-bin transition matrix from consecutive observations
(Fit), turns the matrix row for a current observation into a
piecewise-uniform predictive distribution (Forecast), and draws
independent samples from that distribution by inverse-CDF sampling with
uniform jitter inside the selected bin (Sample and SampleStream).

All operations are pure and stateless: they borrow their inputs
read-only and return freshly allocated outputs, so independent calls are
safe to run concurrently. A fitted matrix can be wrapped in a Model,
which remembers the fit range and supports JSON export and import.
*/
package mcm
