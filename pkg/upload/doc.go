// Package upload stages file uploads outside the request pipeline.
//
// Browsers POST multipart bodies to the upload endpoint, which stages the
// bytes in a Store and answers with an ID. The page's action then claims
// the staged file by ID, keeping large bodies out of the action request
// itself. Staged files are claim-once and expire if never claimed.
//
// Two stores ship with braid: DiskStore for single-node deployments and
// S3Store for anything that scales past one box.
package upload
