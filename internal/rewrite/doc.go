// Package rewrite holds the force-web table: a fixed map from destination
// hostname to a rule that reshapes the URL into a form the destination
// service serves on the web instead of handing off to its native app.
// Hosts without a rule pass through untouched.
package rewrite
