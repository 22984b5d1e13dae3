// Package notify composes and fans out alert notifications across channels
// and recipients. One channel failing never prevents the others from being
// attempted, and never fails alert processing; every attempt is reported as
// an Outcome. Transport clients live in the email and sms subpackages.
package notify
