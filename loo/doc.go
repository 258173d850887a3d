/*
Package loo estimates the expected log predictive density (ELPD) of a
Bayesian model by leave-one-out cross-validation, using Pareto smoothed
importance sampling (PSIS) so that the model never needs to be refit.

The input is the pointwise log-likelihood matrix produced by package
loglik, with one row per posterior draw and one column per observation.
Each observation is handled independently: the importance ratios
1/p(y_i | theta_s) are formed in log space, the largest ratios are
replaced by quantiles of a generalized Pareto distribution fit to them,
and the smoothed weights are used to average the predictive density.
The estimated Pareto shape k of each observation is returned as a
diagnostic; values of 0.7 or more mean the estimate for that
observation should not be trusted.

See Vehtari, Gelman and Gabry (2017), Practical Bayesian model
evaluation using leave-one-out cross-validation and WAIC, and Zhang and
Stephens (2009) for the generalized Pareto fit.
*/
package loo
