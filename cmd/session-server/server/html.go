package server

// HTMLPage is the session page. Each instance captures camera and
// microphone, joins the mesh over /ws and connects to the peers the server
// assigns. The Relay button switches the session to relay mode.
const HTMLPage = `<!DOCTYPE html>
<html>
<head>
    <title>rtcbench session</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            margin: 30px auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 { color: #333; margin-bottom: 10px; }
        button {
            background: #4285f4;
            color: white;
            border: none;
            padding: 12px 24px;
            border-radius: 4px;
            cursor: pointer;
            font-size: 16px;
        }
        button:hover { background: #3367d6; }
        button:disabled { background: #ccc; cursor: not-allowed; }
        #status { margin: 20px 0; color: #666; }
        #streams { display: flex; flex-wrap: wrap; gap: 12px; }
        .node-card {
            background: #e8f4fc;
            padding: 10px;
            border-radius: 4px;
            font-size: 13px;
        }
        .node-card video { width: 320px; background: #000; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>rtcbench session</h1>
        <button id="relay-button">Relay</button>
        <div id="status">Starting...</div>
        <div id="streams"></div>
    </div>

    <script>
        let iceServers = [];
        let socket = null;
        let localStream = null;
        let myID = "";
        let myIP = "";
        let relaying = false;
        let clients = {};
        const peers = {};
        const streams = {};

        function setStatus(text) {
            document.getElementById('status').textContent = text;
        }

        function send(type, data) {
            socket.send(JSON.stringify({type: type, data: data}));
        }

        document.getElementById('relay-button').addEventListener('click', (event) => {
            event.target.disabled = true;
            send('initiateRelay');
        });

        async function init() {
            try {
                const resp = await fetch('/config');
                iceServers = await resp.json();
                localStream = await navigator.mediaDevices.getUserMedia({audio: true, video: true});
                addCard('local', localStream);
                myIP = await publicIP();
                connect();
            } catch (err) {
                setStatus('Error: ' + err.message);
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss:' : 'ws:';
            socket = new WebSocket(scheme + '//' + location.host + '/ws');
            socket.onclose = () => setStatus('Disconnected');
            socket.onmessage = (event) => {
                const msg = JSON.parse(event.data);
                const data = msg.data || {};
                switch (msg.type) {
                case 'clientID':
                    myID = data.id;
                    setStatus('Joined as ' + myID);
                    send('sendInformation', {ip: myIP});
                    break;
                case 'information':
                    updateInformation(data.clients || {});
                    break;
                case 'connectToPeer':
                    connectToPeer(data);
                    break;
                case 'stopConnection':
                    stopConnection(data.peer_id);
                    break;
                case 'sessionDescription':
                    handleSessionDescription(data);
                    break;
                case 'iceCandidate':
                    if (peers[data.peer_id]) {
                        peers[data.peer_id].addIceCandidate(new RTCIceCandidate(data.ice_candidate));
                    }
                    break;
                case 'relay':
                    startRelay();
                    break;
                }
            };
        }

        function connectToPeer(config) {
            const id = config.peer_id;
            if (id in peers) return;

            const pc = new RTCPeerConnection({iceServers: iceServers});
            peers[id] = pc;

            if (config.bi_connection || config.should_create_offer) {
                localStream.getTracks().forEach((track) => pc.addTrack(track, localStream));
            }

            pc.onnegotiationneeded = async () => {
                if (!relaying && !config.should_create_offer) return;
                const offer = await pc.createOffer();
                await pc.setLocalDescription(offer);
                send('relaySessionDescription', {peer_id: id, session_description: pc.localDescription});
            };
            pc.onicecandidate = (event) => {
                if (event.candidate) {
                    send('relayICECandidate', {peer_id: id, ice_candidate: event.candidate});
                }
            };
            pc.ontrack = (event) => {
                if (event.track.kind === 'video') addCard(id, event.streams[0]);
            };
            pc.onconnectionstatechange = () => {
                if (pc.connectionState === 'connected') send('connectionEstablished');
            };
        }

        async function handleSessionDescription(config) {
            const pc = peers[config.peer_id];
            if (!pc) return;
            const desc = new RTCSessionDescription(config.session_description);
            await pc.setRemoteDescription(desc);
            if (desc.type === 'offer') {
                const answer = await pc.createAnswer();
                await pc.setLocalDescription(answer);
                send('relaySessionDescription', {peer_id: config.peer_id, session_description: pc.localDescription});
            }
        }

        function stopConnection(id) {
            if (!(id in peers)) return;
            peers[id].close();
            delete peers[id];
            delete streams[id];
            const card = document.getElementById('card-' + id);
            if (card) card.remove();
        }

        function updateInformation(info) {
            clients = info;
            Object.values(info).forEach((c) => {
                const label = document.getElementById('card-' + c.id + '-info');
                if (label) label.textContent = 'ID: ' + c.id + ' IP: ' + c.ip + ' Leader: ' + c.leader;
            });
        }

        // A leader forwards every remote stream from outside its IP to the
        // clients sharing its IP.
        function startRelay() {
            relaying = true;
            const lan = Object.values(clients).filter((c) => c.ip === myIP && c.id !== myID).map((c) => c.id);
            const remote = Object.keys(streams).filter((id) => id !== 'local' && !lan.includes(id));
            lan.forEach((id) => {
                if (!peers[id]) return;
                remote.forEach((sid) => {
                    streams[sid].getTracks().forEach((track) => peers[id].addTrack(track, streams[sid]));
                });
            });
            setStatus('Relaying ' + remote.length + ' streams to ' + lan.length + ' peers');
        }

        function addCard(id, stream) {
            if (document.getElementById('card-' + id)) return;
            streams[id] = stream;
            const card = document.createElement('div');
            card.className = 'node-card';
            card.id = 'card-' + id;
            const video = document.createElement('video');
            video.autoplay = true;
            video.muted = true;
            video.playsInline = true;
            video.srcObject = stream;
            const label = document.createElement('div');
            label.id = 'card-' + id + '-info';
            label.textContent = 'ID: ' + id;
            card.appendChild(video);
            card.appendChild(label);
            document.getElementById('streams').appendChild(card);
        }

        // publicIP resolves the server-reflexive address of this browser, or
        // an empty string when no STUN server answers.
        function publicIP() {
            return new Promise((resolve) => {
                const pc = new RTCPeerConnection({iceServers: iceServers});
                let done = false;
                const finish = (ip) => {
                    if (done) return;
                    done = true;
                    pc.close();
                    resolve(ip);
                };
                pc.createDataChannel('');
                pc.onicecandidate = (event) => {
                    if (!event.candidate) return finish('');
                    const parts = event.candidate.candidate.split(' ');
                    if (parts[7] === 'srflx') finish(parts[4]);
                };
                pc.createOffer().then((offer) => pc.setLocalDescription(offer));
                setTimeout(() => finish(''), 5000);
            });
        }

        init();
    </script>
</body>
</html>
`
