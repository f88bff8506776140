// Package security implements the gRPC transport for the security service.
//
// The service is declared with well-known protobuf types only, so no
// generated code is needed: requests and responses are Empty, StringValue,
// BytesValue and Struct messages. Snapshots and sensors travel as Struct
// documents encoded by the codec package.
package security
