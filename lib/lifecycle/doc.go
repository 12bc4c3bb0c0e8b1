/*
Package lifecycle manages issued license keys after purchase.

Three operations cover the life of a key:

  - Deactivate adds a key to the revocation list. The operation is
    idempotent and the list only ever grows.
  - Reissue heals a revoked key: the owner's purchase record is swapped to a
    fresh pool key in place, keeping the order id but refreshing the date.
    Keys without a record get a synthetic one. Nobody is mailed; telling the
    owner is a separate operator action.
  - RotateAll swaps every issued key for a fresh one in a single pass,
    guarded by the rotation and allocation locks. The pool capacity check
    happens before any record is modified, so an underfull pool aborts the
    rotation cleanly.

The Verifier answers activation checks with a fixed chain: revocation list,
issued set, pool membership, then an optional external validation service.
Revocation beats every later link.
*/
package lifecycle
