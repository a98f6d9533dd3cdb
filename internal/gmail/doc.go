// Package gmail provides a client for the Gmail API and the MIME payload
// extraction used to turn Gmail's full-format message trees into bodies and
// attachment descriptors.
//
// The package offers:
//   - Payload extraction (ExtractBody, ExtractAttachments, DecodeBase64URL)
//   - Message shaping for API responses (Summary, MessageView, FullEmail)
//   - Promotional mail classification and label normalisation
//   - Message, thread, label and attachment operations
//   - Composition of outgoing mail, drafts and draft replies
//
// Authentication:
// A Client is bound to a single OAuth access token supplied by the caller.
// Tokens are never refreshed or stored.
//
// Example usage:
//
//	client, err := gmail.NewClientWithToken(ctx, accessToken)
//	if err != nil {
//	    return err
//	}
//
//	msg, err := client.GetMessage(ctx, id)
//	if err != nil {
//	    return err
//	}
//
//	body, err := gmail.ExtractBody(msg.Payload)
//	if err != nil {
//	    // body still holds every part that decoded
//	    slog.Warn("partial body", logging.Err(err))
//	}
//	attachments := gmail.ExtractAttachments(msg.Payload)
package gmail
