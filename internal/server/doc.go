// Package server exposes the comment pipeline over HTTP (echo) and as an AWS
// Lambda handler behind API Gateway.
//
// Both transports share one contract: POST /comments/ with {"url": "..."}
// answers {"comments": [...]}, and any failure answers {"detail": "..."}.
package server
