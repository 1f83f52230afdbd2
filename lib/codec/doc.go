// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec frames messages exchanged with the operator console.
//
// Every websocket message is one frame: a channel name plus a payload.
// Two encodings are supported and negotiated as a websocket
// subprotocol ([Codec.Subprotocol]):
//
//   - JSON (the default) travels in text messages. Payload field names
//     are the camelCase names the operator console expects.
//   - CBOR travels in binary messages, using Core Deterministic
//     Encoding so the same frame always produces the same bytes. Struct
//     fields without a cbor tag fall back to their json tag, so payload
//     types need only one set of tags.
//
// Receivers get a [Message] holding the still-encoded payload and
// decode it into the type the channel calls for.
package codec
