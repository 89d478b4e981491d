package backends

// StanProgram is the Lotka-Volterra model for the cmdstan backend.
// Build it once with CmdStan's make and point Config.BinPath at the
// executable. The bounded parameter declarations implement the prior
// truncation; the solver tolerance arrives as data.
const StanProgram = `functions {
  vector dz_dt(real t, vector z, real a, real b, real c, real d) {
    real x = z[1];
    real y = z[2];
    vector[2] dz;
    dz[1] = a * x - b * x * y;
    dz[2] = -c * y + d * x * y;
    return dz;
  }
}
data {
  int<lower=1> N;
  real t0;
  array[N] real ts;
  vector[2] y0;
  array[N] vector[2] y;
  real<lower=0> rtol;
}
parameters {
  real<lower=0.5, upper=2.5> a;
  real<lower=0, upper=2> b;
  real<lower=1, upper=4> c;
  real<lower=0, upper=2> d;
  real<lower=0> sigma;
}
transformed parameters {
  array[N] vector[2] z = ode_rk45_tol(dz_dt, y0, t0, ts, rtol, 1e-8, 10000, a, b, c, d);
}
model {
  a ~ normal(1.5, 0.5);
  b ~ normal(1.2, 0.5);
  c ~ normal(3.0, 0.5);
  d ~ normal(1.0, 0.5);
  sigma ~ inv_gamma(2, 3);
  for (n in 1:N) {
    y[n] ~ normal(z[n], sigma);
  }
}
`
