// Package ragbot is a Go client for the ragbot chat API.
//
// Answers arrive as a plain-text stream; read them fragment by fragment
// or collect the whole reply:
//
//	client, _ := ragbot.New("http://localhost:8080", ragbot.WithAPIKey(key))
//
//	stream, _ := client.Ask(ctx, "What were total sales last weekend?", nil)
//	defer stream.Close()
//	for {
//	    frag, err := stream.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
//
//	text, _ := client.Answer(ctx, "And the week before?", history)
package ragbot
