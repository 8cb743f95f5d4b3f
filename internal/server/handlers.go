package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/chat"
)

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat server is running!")
}

// RoomsHandler lists every room the registry knows about, with member counts
// and history sizes, as a JSON array sorted by room name.
func RoomsHandler(registry *chat.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(registry.Rooms()); err != nil {
			logger.Warn("writing rooms response", zap.Error(err))
		}
	}
}

// TestPageHandler returns a handler serving a small HTML page for joining a
// room and chatting from the browser.
func TestPageHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := fmt.Fprint(w, testPageHTML); err != nil {
			logger.Warn("writing test page", zap.Error(err))
		}
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>GoChat Room Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] {
            width: 200px;
            padding: 5px;
            margin-right: 10px;
        }
        #messageInput { width: 300px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status {
            margin: 10px 0;
            padding: 5px;
            border-radius: 3px;
        }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>GoChat Room Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="roomInput" placeholder="Room" value="general">
        <input type="text" id="nameInput" placeholder="Your name">
        <button id="connectButton" onclick="toggleConnection()">Join</button>
    </div>
    <div style="margin-top: 10px;">
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const roomInput = document.getElementById('roomInput');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(who, text, color) {
            const line = document.createElement('div');
            line.style.margin = '5px 0';
            line.style.padding = '3px';
            line.style.color = color;
            const label = document.createElement(who ? 'strong' : 'em');
            label.textContent = who ? who + ': ' : text;
            line.appendChild(label);
            if (who) {
                line.appendChild(document.createTextNode(text));
            }
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected
                ? 'Joined ' + roomInput.value + ' as ' + nameInput.value
                : 'Disconnected';
            statusDiv.className = connected ? 'status connected' : 'status disconnected';
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            roomInput.disabled = connected;
            nameInput.disabled = connected;
            connectButton.textContent = connected ? 'Leave' : 'Join';
        }

        function handleFrame(data) {
            let payload;
            try {
                payload = JSON.parse(data);
            } catch (e) {
                addLine('', 'Unreadable frame: ' + data, 'gray');
                return;
            }
            if (Array.isArray(payload)) {
                payload.forEach(function(m) { addLine(m.author, m.text, 'green'); });
            } else if (payload.error_message) {
                addLine('', 'Error: ' + payload.error_message, 'red');
            }
        }

        function connect() {
            const room = roomInput.value.trim();
            const name = nameInput.value.trim();
            if (!room || !name) {
                addLine('', 'Room and name are required', 'gray');
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/chat/' + encodeURIComponent(room) +
                '?username=' + encodeURIComponent(name));

            ws.onopen = function() {
                addLine('', 'Connected to GoChat server', 'gray');
                updateStatus(true);
            };

            ws.onmessage = function(event) {
                handleFrame(event.data);
            };

            ws.onclose = function() {
                addLine('', 'Connection closed', 'gray');
                updateStatus(false);
                ws = null;
            };

            ws.onerror = function() {
                addLine('', 'Connection error', 'gray');
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ text: text }));
                addLine('You', text, 'blue');
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
