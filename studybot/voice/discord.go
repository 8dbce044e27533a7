package voice

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
)

// DiscordNotifier implements Notifier on the disgo REST client.
type DiscordNotifier struct {
	client  bot.Client
	guildID snowflake.ID
}

func NewDiscordNotifier(client bot.Client, guildID snowflake.ID) *DiscordNotifier {
	return &DiscordNotifier{client: client, guildID: guildID}
}

func (n *DiscordNotifier) Send(ctx context.Context, channelID snowflake.ID, content string) (MessageRef, error) {
	msg, err := n.client.Rest().CreateMessage(channelID,
		discord.NewMessageCreateBuilder().SetContent(content).Build())
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChannelID: channelID, MessageID: msg.ID}, nil
}

func (n *DiscordNotifier) Edit(ctx context.Context, ref MessageRef, content string) error {
	_, err := n.client.Rest().UpdateMessage(ref.ChannelID, ref.MessageID,
		discord.NewMessageUpdateBuilder().SetContent(content).Build())
	return err
}

func (n *DiscordNotifier) Delete(ctx context.Context, ref MessageRef) error {
	return n.client.Rest().DeleteMessage(ref.ChannelID, ref.MessageID)
}

func (n *DiscordNotifier) Disconnect(ctx context.Context, userID snowflake.ID, reason string) error {
	// MemberUpdate's channel field is omitted when unset, but kicking a
	// member out of voice needs an explicit null on the wire.
	body := map[string]any{"channel_id": nil}
	return n.client.Rest().Do(rest.UpdateMember.Compile(nil, n.guildID, userID), body, nil,
		rest.WithCtx(ctx), rest.WithReason(reason))
}

// DiscordCueBackend joins a voice channel and streams a pre-encoded
// opus cue file to it. Cue files live in cueRoot as <cueID> with
// little-endian uint32 frame lengths, the format disgo's voice examples
// use.
type DiscordCueBackend struct {
	client  bot.Client
	guildID snowflake.ID
	cueRoot string
}

func NewDiscordCueBackend(client bot.Client, guildID snowflake.ID, cueRoot string) *DiscordCueBackend {
	return &DiscordCueBackend{client: client, guildID: guildID, cueRoot: cueRoot}
}

func (b *DiscordCueBackend) Play(ctx context.Context, channelID snowflake.ID, cueID string) error {
	path := filepath.Join(b.cueRoot, cueID)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cue file %s: %w", cueID, err)
	}
	defer file.Close()

	conn := b.client.VoiceManager().CreateConn(b.guildID)
	if err := conn.Open(ctx, channelID, false, true); err != nil {
		return fmt.Errorf("failed to open voice connection: %w", err)
	}
	defer conn.Close(context.Background())

	if err := conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone); err != nil {
		return fmt.Errorf("failed to set speaking: %w", err)
	}
	if _, err := conn.UDP().Write(voice.SilenceAudioFrame); err != nil {
		return fmt.Errorf("failed to send silence frame: %w", err)
	}

	var lenBuf [4]byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := io.ReadFull(file, lenBuf[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read frame length: %w", err)
		}
		frameLen := int64(binary.LittleEndian.Uint32(lenBuf[:]))
		if _, err := io.CopyN(conn.UDP(), file, frameLen); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to write frame: %w", err)
		}
	}
}
