// Package password verifies login credentials against stored hashes.
//
// Argon2id hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// bcrypt hashes ($2a$, $2b$, $2y$) are accepted for verification so that
// accounts seeded by the card-management service keep working.
package password
