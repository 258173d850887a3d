/*
Package glm defines the likelihood families used to model a response
given covariates: Normal (Gaussian), Poisson, and negative binomial
(NB2).  Each family provides its log density kernel, its variance
function, and the link functions it supports.

A Model couples a family and link with a statmodel.Dataset and
optional Normal priors, and exposes the log posterior density and its
gradient on an unconstrained parameter vector holding the intercept,
the slopes, and the log of the dispersion.

The negative binomial family uses the mean/shape parameterization, in
which the variance is mu + mu^2 / phi.  It approaches the Poisson family
as phi grows.
*/
package glm
