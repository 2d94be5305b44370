package web

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Emotion Mirror</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; background: #111; color: #eee; font-family: sans-serif; text-align: center; }
        h1 { font-weight: 400; margin: 16px 0 8px; }
        img { max-width: 100%; height: auto; background: #000; border-radius: 4px; }
        .readout { margin: 12px auto; font-size: 1.2em; color: #0f0; min-height: 1.4em; }
        .hint { color: #888; font-size: 0.85em; }
    </style>
</head>
<body>
    <h1>Emotion Mirror</h1>
    <img id="stream" src="/video_feed" alt="Live camera stream">
    <div class="readout" id="emotions">Waiting for faces&hellip;</div>
    <p class="hint">Boxes update once per inference cycle; the video runs at full frame rate.</p>
    <script>
        const readout = document.getElementById('emotions');
        const source = new EventSource('/api/detections/stream');
        source.onmessage = (e) => {
            const event = JSON.parse(e.data);
            if (!event.detections || event.detections.length === 0) {
                readout.textContent = 'No faces detected';
                return;
            }
            readout.textContent = event.detections
                .filter((d) => d.emotion)
                .map((d) => d.emotion.charAt(0).toUpperCase() + d.emotion.slice(1))
                .join(', ') || 'No faces detected';
        };
        source.onerror = () => { readout.textContent = 'Detection stream unavailable'; };
    </script>
</body>
</html>
`
